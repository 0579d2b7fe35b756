package fanout

import (
	"fmt"
	"kolekta/geo"
	"kolekta/objects"
	"kolekta/rabbit"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/stretchr/testify/assert"
)

// Mock structures for testing

// MockRepository implements the repository lookups used by fanout
type MockRepository struct {
	users map[int64]*objects.User
}

func (m *MockRepository) FindUser(userID int64) *objects.User {
	return m.users[userID]
}

func (m *MockRepository) FindUsersInRadius(lat, lon float64, radiusKm int) ([]*objects.User, error) {
	var result []*objects.User
	for _, user := range m.users {
		result = append(result, user)
	}
	return result, nil
}

// MockRabbitClient captures published post notifications
type MockRabbitClient struct {
	publishedMessages []rabbit.PostNotificationBag
}

func (m *MockRabbitClient) PublishPostNotification(notificationBag rabbit.PostNotificationBag) error {
	m.publishedMessages = append(m.publishedMessages, notificationBag)
	return nil
}

// TestFanoutService mirrors the recipient selection logic of FanoutService
// against mock dependencies.
type TestFanoutService struct {
	repo   *MockRepository
	rabbit *MockRabbitClient
	seen   map[int64]bool
}

func NewTestFanoutService(repo *MockRepository, rabbitClient *MockRabbitClient) *TestFanoutService {
	return &TestFanoutService{
		repo:   repo,
		rabbit: rabbitClient,
		seen:   make(map[int64]bool),
	}
}

func (f *TestFanoutService) BroadcastPost(post *objects.ExchangePost) error {
	if f.seen[post.ID] {
		return nil
	}
	f.seen[post.ID] = true

	author := f.repo.FindUser(post.UserID)
	if author == nil {
		return fmt.Errorf("post author %d not found", post.UserID)
	}

	radiusKm := 10
	if author.SearchRadiusKm != nil {
		radiusKm = *author.SearchRadiusKm
	}

	nearbyUsers, err := f.repo.FindUsersInRadius(post.Lat, post.Lon, radiusKm)
	if err != nil {
		return err
	}

	for _, user := range nearbyUsers {
		if user.UserId != post.UserID {
			if user.MenuId != objects.Menu_Main {
				continue
			}
			if user.SearchRadiusKm != nil {
				distance := geo.DistanceKm(post.Lat, post.Lon, user.Lat, user.Lon)
				if distance > float64(*user.SearchRadiusKm) {
					continue
				}
			}
		}

		msg := tgbotapi.NewMessage(user.UserId, "Test notification")
		f.rabbit.PublishPostNotification(rabbit.PostNotificationBag{
			PostID:          post.ID,
			RecipientUserID: user.UserId,
			Message:         msg,
			Priority:        100,
		})
	}

	return nil
}

func intPtr(v int) *int {
	return &v
}

func makeUser(id int64, menuId objects.MenuId, lat, lon float64, radiusKm *int) *objects.User {
	return &objects.User{
		UserId:         id,
		MenuId:         menuId,
		FirstName:      fmt.Sprintf("User%d", id),
		Lat:            lat,
		Lon:            lon,
		SearchRadiusKm: radiusKm,
	}
}

func makePost(id, userID int64, lat, lon float64) *objects.ExchangePost {
	post := objects.NewExchangePost(userID, 1000, objects.CashKindBill, 1000, objects.CashKindCoin, lat, lon, "wdw50")
	post.ID = id
	return post
}

func TestBroadcastReachesMainMenuUsers(t *testing.T) {
	repo := &MockRepository{users: map[int64]*objects.User{
		1: makeUser(1, objects.Menu_Main, 14.60, 120.98, intPtr(10)), // author
		2: makeUser(2, objects.Menu_Main, 14.61, 120.98, intPtr(10)),
		3: makeUser(3, objects.Menu_Main, 14.62, 120.99, intPtr(10)),
	}}
	rabbitClient := &MockRabbitClient{}
	service := NewTestFanoutService(repo, rabbitClient)

	err := service.BroadcastPost(makePost(100, 1, 14.60, 120.98))
	assert.NoError(t, err)
	assert.Len(t, rabbitClient.publishedMessages, 3, "author and both nearby users get a message")

	recipients := make(map[int64]bool)
	for _, bag := range rabbitClient.publishedMessages {
		assert.Equal(t, int64(100), bag.PostID)
		recipients[bag.RecipientUserID] = true
	}
	assert.True(t, recipients[1], "author must be notified about own post")
	assert.True(t, recipients[2])
	assert.True(t, recipients[3])
}

func TestBroadcastSkipsUsersOutsideMainMenu(t *testing.T) {
	repo := &MockRepository{users: map[int64]*objects.User{
		1: makeUser(1, objects.Menu_Main, 14.60, 120.98, intPtr(10)),
		2: makeUser(2, objects.Menu_AskLocation, 14.61, 120.98, intPtr(10)), // mid-flow, skipped
	}}
	rabbitClient := &MockRabbitClient{}
	service := NewTestFanoutService(repo, rabbitClient)

	err := service.BroadcastPost(makePost(100, 1, 14.60, 120.98))
	assert.NoError(t, err)
	assert.Len(t, rabbitClient.publishedMessages, 1, "only the author remains")
	assert.Equal(t, int64(1), rabbitClient.publishedMessages[0].RecipientUserID)
}

func TestBroadcastHonorsRecipientRadius(t *testing.T) {
	repo := &MockRepository{users: map[int64]*objects.User{
		1: makeUser(1, objects.Menu_Main, 14.60, 120.98, intPtr(100)),
		// About 50 km north of the post with a 5 km personal radius
		2: makeUser(2, objects.Menu_Main, 15.05, 120.98, intPtr(5)),
		// Same spot but wide personal radius
		3: makeUser(3, objects.Menu_Main, 15.05, 120.98, intPtr(100)),
	}}
	rabbitClient := &MockRabbitClient{}
	service := NewTestFanoutService(repo, rabbitClient)

	err := service.BroadcastPost(makePost(100, 1, 14.60, 120.98))
	assert.NoError(t, err)

	recipients := make(map[int64]bool)
	for _, bag := range rabbitClient.publishedMessages {
		recipients[bag.RecipientUserID] = true
	}
	assert.False(t, recipients[2], "tight personal radius excludes far posts")
	assert.True(t, recipients[3], "wide personal radius includes them")
}

func TestBroadcastDeduplicatesRepeatedPosts(t *testing.T) {
	repo := &MockRepository{users: map[int64]*objects.User{
		1: makeUser(1, objects.Menu_Main, 14.60, 120.98, intPtr(10)),
		2: makeUser(2, objects.Menu_Main, 14.61, 120.98, intPtr(10)),
	}}
	rabbitClient := &MockRabbitClient{}
	service := NewTestFanoutService(repo, rabbitClient)

	post := makePost(100, 1, 14.60, 120.98)

	// The feed delivers snapshots at least once, so the same post can
	// arrive multiple times.
	assert.NoError(t, service.BroadcastPost(post))
	assert.NoError(t, service.BroadcastPost(post))
	assert.NoError(t, service.BroadcastPost(post))

	assert.Len(t, rabbitClient.publishedMessages, 2, "each recipient is notified exactly once")
}

func TestBroadcastFailsForUnknownAuthor(t *testing.T) {
	repo := &MockRepository{users: map[int64]*objects.User{}}
	rabbitClient := &MockRabbitClient{}
	service := NewTestFanoutService(repo, rabbitClient)

	err := service.BroadcastPost(makePost(100, 42, 14.60, 120.98))
	assert.Error(t, err)
	assert.Empty(t, rabbitClient.publishedMessages)
}
