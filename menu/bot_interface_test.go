package menu

import (
	"kolekta/context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

// The mock must stay in sync with the interface the sender relies on.
func TestMockBotAPISatisfiesBotAPI(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var bot context.BotAPI = NewMockBotAPI(ctrl)
	assert.NotNil(t, bot)
}

func TestContextBotAccessors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockBot := NewMockBotAPI(ctrl)

	ctx := &context.Context{}
	ctx.SetBot(mockBot)

	assert.Equal(t, context.BotAPI(mockBot), ctx.GetBot())
}
