package match

import (
	"errors"
	"fmt"
	"kolekta/context"
	"kolekta/feed"
	"kolekta/geo"
	"kolekta/matcher"
	"kolekta/messaging"
	"kolekta/metrics"
	"kolekta/objects"
	"kolekta/rabbit"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Service owns the post lifecycle and the match request state machine.
// Repository transactions enforce the state transitions; this layer adds
// validation, feed publication and partner notifications on top.
type Service struct {
	context *context.Context
}

func NewService(context *context.Context) *Service {
	return &Service{
		context: context,
	}
}

// CreatePost validates and stores a new exchange post, then publishes it to
// the in-process feed so the fanout service can broadcast it.
func (s *Service) CreatePost(userID int64, giveAmount int, giveKind string, needAmount int, needKind string, needBreakdown string, lat, lon float64) (*objects.ExchangePost, error) {
	log.Printf("[MATCH] User %d creating post: gives %d %s, needs %d %s",
		userID, giveAmount, giveKind, needAmount, needKind)

	geohash, err := geo.Encode(lat, lon, geo.PostPrecision)
	if err != nil {
		return nil, err
	}

	post := objects.NewExchangePost(userID, giveAmount, giveKind, needAmount, needKind, lat, lon, geohash)
	post.NeedBreakdown = needBreakdown

	if err := post.Validate(); err != nil {
		return nil, err
	}

	if err := s.context.Repo.CreatePost(post); err != nil {
		return nil, err
	}

	log.Printf("[MATCH] Created post %d in cell %s", post.ID, post.Geohash)
	metrics.RecordPostCreated(post.GiveKind, post.NeedKind)

	s.context.Feed.Publish(feed.Snapshot{post})

	return post, nil
}

// WithdrawPost closes an active post on behalf of its owner.
func (s *Service) WithdrawPost(postID, ownerID int64) error {
	log.Printf("[MATCH] User %d withdrawing post %d", ownerID, postID)

	if err := s.context.Repo.ClosePost(postID, ownerID); err != nil {
		if errors.Is(err, objects.ErrStateConflict) {
			metrics.RecordStateConflict("withdraw_post")
		}
		return err
	}

	metrics.RecordPostClosed("withdrawn")
	return nil
}

// Search returns nearby active posts ranked for the given user. SortBy
// selects the ranking mode; an empty radius falls back to the user's own
// search radius when one is set.
func (s *Service) Search(user *objects.User, sortBy matcher.SortKey) ([]matcher.Candidate, error) {
	log.Printf("[MATCH] User %d searching posts, sort=%s", user.UserId, sortBy)

	posts, err := s.context.Repo.FindActivePosts(user.UserId)
	if err != nil {
		return nil, err
	}

	// Aggregate ratings of post owners feed into the ranking.
	ownerRatings := make(map[int64]float64)
	for _, post := range posts {
		if _, ok := ownerRatings[post.UserID]; ok {
			continue
		}
		if owner := s.context.Repo.FindUser(post.UserID); owner != nil {
			ownerRatings[post.UserID] = owner.AverageRating
		}
	}

	opts := matcher.Options{
		RequesterID: user.UserId,
		Lat:         user.Lat,
		Lon:         user.Lon,
		HasLocation: user.HasLocation(),
		SortBy:      sortBy,
	}
	if user.SearchRadiusKm != nil {
		opts.RadiusKm = float64(*user.SearchRadiusKm)
	}

	candidates := matcher.Rank(posts, ownerRatings, opts)

	metrics.RecordPostSearch(string(sortBy))
	return candidates, nil
}

// RequestExchange files a match request against a post and notifies the
// post owner. Duplicate live requests and requests against own or inactive
// posts are rejected by the repository.
func (s *Service) RequestExchange(postID, requesterID int64) (*objects.MatchRequest, error) {
	log.Printf("[MATCH] User %d requesting exchange on post %d", requesterID, postID)

	request, err := s.context.Repo.CreateMatchRequest(postID, requesterID)
	if err != nil {
		if errors.Is(err, objects.ErrStateConflict) {
			metrics.RecordMatchRequest("duplicate")
		}
		return nil, err
	}

	metrics.RecordMatchRequest("created")

	s.notifyRequestReceived(request)

	return request, nil
}

// Accept accepts a pending request on behalf of the post owner. The
// repository atomically flips the post to matched, declines competing
// requests and opens the active exchange. Losers and the winner are
// notified here.
func (s *Service) Accept(matchID, ownerID int64) (*objects.ActiveExchange, error) {
	log.Printf("[MATCH] User %d accepting match request %d", ownerID, matchID)

	exchange, declinedRequesters, err := s.context.Repo.AcceptMatchRequest(matchID, ownerID)
	if err != nil {
		if errors.Is(err, objects.ErrStateConflict) {
			metrics.RecordStateConflict("accept_match")
		}
		return nil, err
	}

	metrics.RecordMatchRequest("accepted")

	// Seed the exchange chat so both parties see when it opened.
	systemMsg := objects.NewSystemChatMessage(exchange.MatchID, "Exchange started. Agree on a meeting point here.")
	if err := s.context.Repo.AppendChatMessage(systemMsg); err != nil {
		log.Printf("[MATCH] Failed to append system chat message for match %d: %v", exchange.MatchID, err)
	}

	s.notifyAccepted(exchange)

	for _, requesterID := range declinedRequesters {
		metrics.RecordMatchRequest("declined")
		s.notifyDeclined(exchange.PostID, requesterID)
	}

	return exchange, nil
}

// Decline declines a pending request on behalf of the post owner.
func (s *Service) Decline(matchID, ownerID int64) error {
	log.Printf("[MATCH] User %d declining match request %d", ownerID, matchID)

	request, err := s.context.Repo.DeclineMatchRequest(matchID, ownerID)
	if err != nil {
		if errors.Is(err, objects.ErrStateConflict) {
			metrics.RecordStateConflict("decline_match")
		}
		return err
	}

	metrics.RecordMatchRequest("declined")
	s.notifyDeclined(request.PostID, request.RequesterID)
	return nil
}

// PendingRequests lists requests awaiting a decision by the post owner.
func (s *Service) PendingRequests(ownerID int64) ([]*objects.MatchRequest, error) {
	return s.context.Repo.FindPendingRequestsForOwner(ownerID)
}

// notifyRequestReceived tells the post owner somebody wants their post.
func (s *Service) notifyRequestReceived(request *objects.MatchRequest) {
	owner := s.context.Repo.FindUser(request.OwnerID)
	if owner == nil {
		log.Printf("[MATCH] Owner %d not found, skipping notification", request.OwnerID)
		return
	}

	requester := s.context.Repo.FindUser(request.RequesterID)
	requesterName := "?"
	if requester != nil {
		requesterName = requester.DisplayName()
	}

	locale := owner.Locale()
	text := fmt.Sprintf(locale.Get("match.request_received"), requesterName, request.PostID)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				locale.Get("match.button_accept"),
				fmt.Sprintf("accept:%d", request.ID),
			),
			tgbotapi.NewInlineKeyboardButtonData(
				locale.Get("match.button_decline"),
				fmt.Sprintf("decline:%d", request.ID),
			),
		),
	)
	msg := messaging.NewHTMLMessageWithKeyboard(owner.UserId, text, keyboard)

	s.publishMatchEvent(request.ID, owner.UserId, "request_received", msg)
}

// notifyAccepted tells the requester the owner accepted.
func (s *Service) notifyAccepted(exchange *objects.ActiveExchange) {
	requester := s.context.Repo.FindUser(exchange.UserA)
	if requester == nil {
		log.Printf("[MATCH] Requester %d not found, skipping notification", exchange.UserA)
		return
	}

	locale := requester.Locale()
	text := fmt.Sprintf(locale.Get("match.request_accepted"), exchange.PostID)

	msg := messaging.NewHTMLMessage(requester.UserId, text)

	s.publishMatchEvent(exchange.MatchID, requester.UserId, "request_accepted", msg)
}

// notifyDeclined tells a requester their request is gone.
func (s *Service) notifyDeclined(postID, requesterID int64) {
	requester := s.context.Repo.FindUser(requesterID)
	if requester == nil {
		return
	}

	locale := requester.Locale()
	text := fmt.Sprintf(locale.Get("match.request_declined"), postID)

	msg := messaging.NewHTMLMessage(requester.UserId, text)

	s.publishMatchEvent(postID, requester.UserId, "request_declined", msg)
}

func (s *Service) publishMatchEvent(matchID, recipientID int64, event string, msg tgbotapi.MessageConfig) {
	err := s.context.RabbitPublish.PublishMatchEvent(rabbit.MatchEventBag{
		MatchID:         matchID,
		RecipientUserID: recipientID,
		Event:           event,
		Message:         msg,
		Priority:        150, // above fanout, below direct replies
	})
	if err != nil {
		log.Printf("[MATCH] Failed to publish '%s' event for match %d: %v", event, matchID, err)
	}
}
