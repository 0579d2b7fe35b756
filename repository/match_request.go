package repository

import (
	"database/sql"
	"log"

	"kolekta/objects"
)

const matchRequestColumns = `id, post_id, requester_id, owner_id, status, created_at, updated_at`

func scanMatchRequest(scanner interface {
	Scan(dest ...interface{}) error
}) (*objects.MatchRequest, error) {
	req := &objects.MatchRequest{}
	err := scanner.Scan(&req.ID, &req.PostID, &req.RequesterID, &req.OwnerID,
		&req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CreateMatchRequest inserts a pending request from requester against a
// post. At most one active (pending or accepted) request may exist per
// (requester, post) pair; the check runs in a transaction with a row lock
// so two racing submissions cannot both pass it.
func (repo *Repository) CreateMatchRequest(postID, requesterID int64) (*objects.MatchRequest, error) {
	log.Printf("[REPOSITORY] Creating match request: post=%d, requester=%d", postID, requesterID)

	tx, err := repo.db.Begin()
	if err != nil {
		log.Printf("[REPOSITORY] Error starting transaction: %v", err)
		return nil, storeErr("create match request", err)
	}
	defer tx.Rollback() // Will be ignored if Commit() succeeds

	// Lock the post row and verify it is still open for matching.
	var ownerID int64
	var postStatus string
	err = tx.QueryRow(
		`SELECT user_id, status FROM posts WHERE id = $1 FOR UPDATE`,
		postID,
	).Scan(&ownerID, &postStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, objects.ErrNotFound
		}
		log.Printf("[REPOSITORY] Error locking post %d: %v", postID, err)
		return nil, storeErr("create match request", err)
	}

	if postStatus != objects.PostStatusActive {
		log.Printf("[REPOSITORY] Post %d is not active (status: %s)", postID, postStatus)
		return nil, objects.ErrStateConflict
	}
	if ownerID == requesterID {
		return nil, objects.NewValidationError("requester_id", "cannot request own post")
	}

	// Check for an existing active request with a row-level lock.
	// Use SELECT id instead of COUNT(*) because FOR UPDATE doesn't work with aggregates.
	var existingID sql.NullInt64
	err = tx.QueryRow(
		`SELECT id FROM match_requests
		 WHERE post_id = $1 AND requester_id = $2 AND status IN ('pending', 'accepted')
		 FOR UPDATE`,
		postID, requesterID,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		log.Printf("[REPOSITORY] Error checking existing match request: %v", err)
		return nil, storeErr("create match request", err)
	}

	if existingID.Valid {
		log.Printf("[REPOSITORY] Active match request already exists (ID: %d), rejecting duplicate", existingID.Int64)
		return nil, objects.ErrStateConflict
	}

	req := objects.NewMatchRequest(postID, requesterID, ownerID)
	err = tx.QueryRow(
		`INSERT INTO match_requests (post_id, requester_id, owner_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		req.PostID, req.RequesterID, req.OwnerID, req.Status, req.CreatedAt, req.UpdatedAt,
	).Scan(&req.ID)

	if err != nil {
		log.Printf("[REPOSITORY] Error creating match request: %v", err)
		return nil, storeErr("create match request", err)
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[REPOSITORY] Error committing match request transaction: %v", err)
		return nil, storeErr("create match request", err)
	}

	log.Printf("[REPOSITORY] Match request created successfully with ID: %d", req.ID)
	return req, nil
}

// GetMatchRequestByID retrieves a match request.
func (repo *Repository) GetMatchRequestByID(id int64) (*objects.MatchRequest, error) {
	log.Printf("[REPOSITORY] Getting match request by ID: %d", id)

	req, err := scanMatchRequest(repo.db.QueryRow(
		`SELECT `+matchRequestColumns+` FROM match_requests WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[REPOSITORY] Match request %d not found", id)
			return nil, objects.ErrNotFound
		}
		log.Printf("[REPOSITORY] Error getting match request %d: %v", id, err)
		return nil, storeErr("get match request", err)
	}

	return req, nil
}

// FindPendingRequestsForOwner lists pending requests against any of the
// owner's posts, oldest first.
func (repo *Repository) FindPendingRequestsForOwner(ownerID int64) ([]*objects.MatchRequest, error) {
	log.Printf("[REPOSITORY] Getting pending requests for owner %d", ownerID)

	rows, err := repo.db.Query(
		`SELECT `+matchRequestColumns+`
		FROM match_requests
		WHERE owner_id = $1 AND status = 'pending'
		ORDER BY created_at ASC`,
		ownerID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error getting pending requests: %v", err)
		return nil, storeErr("find pending requests", err)
	}
	defer rows.Close()

	var requests []*objects.MatchRequest
	for rows.Next() {
		req, err := scanMatchRequest(rows)
		if err != nil {
			log.Printf("[REPOSITORY] Error scanning match request row: %v", err)
			continue
		}
		requests = append(requests, req)
	}

	log.Printf("[REPOSITORY] Found %d pending requests for owner %d", len(requests), ownerID)
	return requests, nil
}

// AcceptMatchRequest performs the full accept transition in one
// transaction: the request goes pending->accepted, the post flips
// active->matched (compare-and-set), every other pending request against
// the post is declined, and exactly one ActiveExchange keyed by the match
// request id is created.
//
// Returns the new ActiveExchange and the requester ids of the declined
// competitors. Fails with ErrStateConflict and no changes if the request is
// not pending or the post already left 'active'.
func (repo *Repository) AcceptMatchRequest(matchID, ownerID int64) (*objects.ActiveExchange, []int64, error) {
	log.Printf("[REPOSITORY] Accepting match request %d by owner %d", matchID, ownerID)

	tx, err := repo.db.Begin()
	if err != nil {
		log.Printf("[REPOSITORY] Error starting transaction: %v", err)
		return nil, nil, storeErr("accept match request", err)
	}
	defer tx.Rollback()

	// Lock the request row.
	req, err := scanMatchRequest(tx.QueryRow(
		`SELECT `+matchRequestColumns+` FROM match_requests WHERE id = $1 FOR UPDATE`, matchID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, objects.ErrNotFound
		}
		log.Printf("[REPOSITORY] Error locking match request %d: %v", matchID, err)
		return nil, nil, storeErr("accept match request", err)
	}

	if req.OwnerID != ownerID {
		return nil, nil, objects.NewValidationError("owner_id", "only the post owner may accept")
	}
	if !req.CanTransitionTo(objects.MatchStatusAccepted) {
		log.Printf("[REPOSITORY] Match request %d is not pending (status: %s)", matchID, req.Status)
		return nil, nil, objects.ErrStateConflict
	}

	// Compare-and-set: withdraw the post from matching only if it is still
	// active. A concurrent accept on the same post loses here.
	result, err := tx.Exec(
		`UPDATE posts
		SET status = 'matched', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'active'`,
		req.PostID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error flipping post %d to matched: %v", req.PostID, err)
		return nil, nil, storeErr("accept match request", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, storeErr("accept match request", err)
	}
	if affected == 0 {
		log.Printf("[REPOSITORY] Post %d is no longer active, accept rejected", req.PostID)
		return nil, nil, objects.ErrStateConflict
	}

	_, err = tx.Exec(
		`UPDATE match_requests
		SET status = 'accepted', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		matchID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error accepting match request %d: %v", matchID, err)
		return nil, nil, storeErr("accept match request", err)
	}

	// Decline all other pending requests against the same post.
	rows, err := tx.Query(
		`UPDATE match_requests
		SET status = 'declined', updated_at = CURRENT_TIMESTAMP
		WHERE post_id = $1 AND status = 'pending' AND id != $2
		RETURNING requester_id`,
		req.PostID, matchID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error declining competing requests: %v", err)
		return nil, nil, storeErr("accept match request", err)
	}
	var declined []int64
	for rows.Next() {
		var requesterID int64
		if err := rows.Scan(&requesterID); err != nil {
			rows.Close()
			return nil, nil, storeErr("accept match request", err)
		}
		declined = append(declined, requesterID)
	}
	rows.Close()

	// Exactly one active exchange per accepted request: the match id is the
	// primary key, so a retried accept cannot double-create it.
	exchange := objects.NewActiveExchange(matchID, req.PostID, req.RequesterID, req.OwnerID)
	_, err = tx.Exec(
		`INSERT INTO active_exchanges (match_id, post_id, user_a, user_b, initiator_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (match_id) DO NOTHING`,
		exchange.MatchID, exchange.PostID, exchange.UserA, exchange.UserB,
		exchange.InitiatorID, exchange.CreatedAt,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error creating active exchange for match %d: %v", matchID, err)
		return nil, nil, storeErr("accept match request", err)
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[REPOSITORY] Error committing accept transaction: %v", err)
		return nil, nil, storeErr("accept match request", err)
	}

	log.Printf("[REPOSITORY] Match request %d accepted, %d competing requests declined", matchID, len(declined))
	return exchange, declined, nil
}

// DeclineMatchRequest moves a pending request to declined. The post stays
// active. Fails with ErrStateConflict if the request is not pending.
func (repo *Repository) DeclineMatchRequest(matchID, ownerID int64) (*objects.MatchRequest, error) {
	log.Printf("[REPOSITORY] Declining match request %d by owner %d", matchID, ownerID)

	tx, err := repo.db.Begin()
	if err != nil {
		return nil, storeErr("decline match request", err)
	}
	defer tx.Rollback()

	req, err := scanMatchRequest(tx.QueryRow(
		`SELECT `+matchRequestColumns+` FROM match_requests WHERE id = $1 FOR UPDATE`, matchID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, objects.ErrNotFound
		}
		log.Printf("[REPOSITORY] Error locking match request %d: %v", matchID, err)
		return nil, storeErr("decline match request", err)
	}

	if req.OwnerID != ownerID {
		return nil, objects.NewValidationError("owner_id", "only the post owner may decline")
	}
	if !req.CanTransitionTo(objects.MatchStatusDeclined) {
		log.Printf("[REPOSITORY] Match request %d is not pending (status: %s)", matchID, req.Status)
		return nil, objects.ErrStateConflict
	}

	_, err = tx.Exec(
		`UPDATE match_requests
		SET status = 'declined', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		matchID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error declining match request %d: %v", matchID, err)
		return nil, storeErr("decline match request", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, storeErr("decline match request", err)
	}

	req.Status = objects.MatchStatusDeclined
	log.Printf("[REPOSITORY] Match request %d declined", matchID)
	return req, nil
}

// ExpirePendingRequestsBefore declines every pending request created before
// the cutoff. Returns the ids of the expired requests.
func (repo *Repository) ExpirePendingRequestsBefore(cutoff string) ([]int64, error) {
	log.Printf("[REPOSITORY] Expiring pending requests older than %s", cutoff)

	rows, err := repo.db.Query(
		`UPDATE match_requests
		SET status = 'declined', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'pending' AND created_at < NOW() - $1::interval
		RETURNING id`,
		cutoff,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error expiring pending requests: %v", err)
		return nil, storeErr("expire pending requests", err)
	}
	defer rows.Close()

	var expired []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("expire pending requests", err)
		}
		expired = append(expired, id)
	}

	log.Printf("[REPOSITORY] Expired %d pending requests", len(expired))
	return expired, nil
}
