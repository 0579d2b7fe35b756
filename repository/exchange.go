package repository

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"kolekta/objects"
)

const exchangeColumns = `match_id, post_id, user_a, user_b, initiator_id,
	a_completed, a_rating, a_notes, a_completed_at,
	b_completed, b_rating, b_notes, b_completed_at,
	created_at`

func scanActiveExchange(scanner interface {
	Scan(dest ...interface{}) error
}) (*objects.ActiveExchange, error) {
	ex := &objects.ActiveExchange{}
	var aRating, bRating sql.NullInt64
	var aNotes, bNotes sql.NullString
	var aCompletedAt, bCompletedAt sql.NullTime

	err := scanner.Scan(&ex.MatchID, &ex.PostID, &ex.UserA, &ex.UserB, &ex.InitiatorID,
		&ex.SideA.Completed, &aRating, &aNotes, &aCompletedAt,
		&ex.SideB.Completed, &bRating, &bNotes, &bCompletedAt,
		&ex.CreatedAt)
	if err != nil {
		return nil, err
	}

	if aRating.Valid {
		ex.SideA.Rating = int(aRating.Int64)
	}
	if bRating.Valid {
		ex.SideB.Rating = int(bRating.Int64)
	}
	if aNotes.Valid {
		ex.SideA.Notes = aNotes.String
	}
	if bNotes.Valid {
		ex.SideB.Notes = bNotes.String
	}
	if aCompletedAt.Valid {
		ex.SideA.CompletedAt = &aCompletedAt.Time
	}
	if bCompletedAt.Valid {
		ex.SideB.CompletedAt = &bCompletedAt.Time
	}
	return ex, nil
}

// GetActiveExchange retrieves the live session for a match id.
func (repo *Repository) GetActiveExchange(matchID int64) (*objects.ActiveExchange, error) {
	log.Printf("[REPOSITORY] Getting active exchange for match %d", matchID)

	ex, err := scanActiveExchange(repo.db.QueryRow(
		`SELECT `+exchangeColumns+` FROM active_exchanges WHERE match_id = $1`, matchID))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[REPOSITORY] Active exchange %d not found", matchID)
			return nil, objects.ErrNotFound
		}
		log.Printf("[REPOSITORY] Error getting active exchange %d: %v", matchID, err)
		return nil, storeErr("get active exchange", err)
	}

	return ex, nil
}

// FindActiveExchangesForUser lists the live exchanges a user participates
// in, newest first. This feeds the chat entry points and the "complete
// exchange" action.
func (repo *Repository) FindActiveExchangesForUser(userID int64) ([]*objects.ActiveExchange, error) {
	log.Printf("[REPOSITORY] Getting active exchanges for user %d", userID)

	rows, err := repo.db.Query(
		`SELECT `+exchangeColumns+`
		FROM active_exchanges
		WHERE user_a = $1 OR user_b = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error getting active exchanges: %v", err)
		return nil, storeErr("find active exchanges", err)
	}
	defer rows.Close()

	var exchanges []*objects.ActiveExchange
	for rows.Next() {
		ex, err := scanActiveExchange(rows)
		if err != nil {
			log.Printf("[REPOSITORY] Error scanning active exchange row: %v", err)
			continue
		}
		exchanges = append(exchanges, ex)
	}

	log.Printf("[REPOSITORY] Found %d active exchanges for user %d", len(exchanges), userID)
	return exchanges, nil
}

// SubmitCompletion reconciles one participant's completion+rating into the
// shared exchange state. The whole protocol runs in a single transaction
// under a row lock on the active exchange, so the both-completed check can
// never race the counterpart's submission:
//
//  1. insert the immutable rating record keyed by (match, rater); a repeat
//     submission hits the unique key and becomes a no-op,
//  2. set only the submitter's side of the exchange record,
//  3. update the rated counterpart's aggregate with an incremental mean,
//  4. append the submitter's history row (unique per (match, rater)),
//  5. if both sides are now complete, retire the exchange: delete the row,
//     cascade-delete the chat log and close the post.
//
// A submission against an already retired exchange returns ErrNotFound if
// the rater never rated it, and a benign no-op if their rating is already
// on record.
func (repo *Repository) SubmitCompletion(matchID, raterID int64, rating int, notes string) (closed bool, err error) {
	log.Printf("[REPOSITORY] Completion submission: match=%d, rater=%d, rating=%d", matchID, raterID, rating)

	if err := objects.ValidateRating(rating); err != nil {
		return false, err
	}

	tx, err := repo.db.Begin()
	if err != nil {
		return false, storeErr("submit completion", err)
	}
	defer tx.Rollback()

	ex, err := scanActiveExchange(tx.QueryRow(
		`SELECT `+exchangeColumns+` FROM active_exchanges WHERE match_id = $1 FOR UPDATE`, matchID))
	if err != nil {
		if err == sql.ErrNoRows {
			// The exchange may already be retired by the counterpart's
			// closing submission racing this one. If this rater's rating is
			// on record the operation is a no-op, not a failure.
			var count int
			if cerr := repo.db.QueryRow(
				`SELECT COUNT(*) FROM ratings WHERE match_id = $1 AND rater_user_id = $2`,
				matchID, raterID,
			).Scan(&count); cerr == nil && count > 0 {
				log.Printf("[REPOSITORY] Exchange %d already finalized with rating from %d, no-op", matchID, raterID)
				return true, nil
			}
			return false, objects.ErrNotFound
		}
		log.Printf("[REPOSITORY] Error locking active exchange %d: %v", matchID, err)
		return false, storeErr("submit completion", err)
	}

	side := ex.SideFor(raterID)
	if side == nil {
		return false, objects.NewValidationError("rater_id", "not a participant of this exchange")
	}

	// Business rule: the designated initiator triggers the first completion
	// step. Evaluated under the row lock so it cannot flap.
	if !ex.SideA.Completed && !ex.SideB.Completed && raterID != ex.InitiatorID {
		log.Printf("[REPOSITORY] User %d is not the initiator of exchange %d, first step rejected", raterID, matchID)
		return false, objects.ErrStateConflict
	}

	if side.Completed {
		log.Printf("[REPOSITORY] User %d already completed exchange %d, no-op", raterID, matchID)
		return false, nil
	}

	now := time.Now().UTC()
	partnerID := ex.PartnerOf(raterID)

	// 1. Immutable rating record. The unique key makes retries harmless.
	result, err := tx.Exec(
		`INSERT INTO ratings (match_id, rater_user_id, rating, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (match_id, rater_user_id) DO NOTHING`,
		matchID, raterID, rating, notes, now,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error writing rating record: %v", err)
		return false, storeErr("submit completion", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, storeErr("submit completion", err)
	}
	if inserted == 0 {
		log.Printf("[REPOSITORY] Rating for match %d by %d already recorded, no-op", matchID, raterID)
		return false, nil
	}

	// 2. The submitter's side only; the counterpart's columns are untouched.
	var sideUpdate string
	if raterID == ex.UserA {
		sideUpdate = `UPDATE active_exchanges
			SET a_completed = TRUE, a_rating = $2, a_notes = $3, a_completed_at = $4
			WHERE match_id = $1`
	} else {
		sideUpdate = `UPDATE active_exchanges
			SET b_completed = TRUE, b_rating = $2, b_notes = $3, b_completed_at = $4
			WHERE match_id = $1`
	}
	if _, err = tx.Exec(sideUpdate, matchID, rating, notes, now); err != nil {
		log.Printf("[REPOSITORY] Error updating completion side: %v", err)
		return false, storeErr("submit completion", err)
	}

	// 3. Incremental mean on the rated counterpart, computed in SQL so
	// concurrent raters of the same user cannot lose updates.
	if _, err = tx.Exec(
		`UPDATE users
		 SET average_rating = (average_rating * total_ratings + $2) / (total_ratings + 1),
		     total_ratings = total_ratings + 1,
		     completed_exchanges = completed_exchanges + 1
		 WHERE user_id = $1`,
		partnerID, float64(rating),
	); err != nil {
		log.Printf("[REPOSITORY] Error updating aggregate rating for user %d: %v", partnerID, err)
		return false, storeErr("submit completion", err)
	}

	// 4. The submitter's history row.
	var partnerName string
	var pFirst, pLast, pUsername sql.NullString
	err = tx.QueryRow(
		`SELECT first_name, last_name, username FROM users WHERE user_id = $1`,
		partnerID,
	).Scan(&pFirst, &pLast, &pUsername)
	if err != nil && err != sql.ErrNoRows {
		return false, storeErr("submit completion", err)
	}
	partnerName = displayName(pFirst.String, pLast.String, pUsername.String, partnerID)

	durationSeconds := int64(now.Sub(ex.CreatedAt).Seconds())
	if _, err = tx.Exec(
		`INSERT INTO exchange_history (match_id, rater_user_id, partner_user_id, partner_name,
		                               rating, notes, duration_seconds, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (match_id, rater_user_id) DO NOTHING`,
		matchID, raterID, partnerID, partnerName, rating, notes, durationSeconds, now,
	); err != nil {
		log.Printf("[REPOSITORY] Error writing history record: %v", err)
		return false, storeErr("submit completion", err)
	}

	// 5. Terminal check under the same lock.
	partnerSide := ex.SideFor(partnerID)
	if partnerSide.Completed {
		log.Printf("[REPOSITORY] Both sides completed, retiring exchange %d", matchID)

		if _, err = tx.Exec(`DELETE FROM active_exchanges WHERE match_id = $1`, matchID); err != nil {
			return false, storeErr("submit completion", err)
		}
		// Session data is ephemeral once the exchange is finalized.
		if _, err = tx.Exec(`DELETE FROM chat_messages WHERE match_id = $1`, matchID); err != nil {
			return false, storeErr("submit completion", err)
		}
		if _, err = tx.Exec(
			`UPDATE posts SET status = 'closed', updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
			ex.PostID,
		); err != nil {
			return false, storeErr("submit completion", err)
		}
		closed = true
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[REPOSITORY] Error committing completion transaction: %v", err)
		return false, storeErr("submit completion", err)
	}

	log.Printf("[REPOSITORY] Completion recorded for match %d by user %d (closed: %v)", matchID, raterID, closed)
	return closed, nil
}

func displayName(first, last, username string, userID int64) string {
	name := first
	if last != "" {
		if name != "" {
			name += " "
		}
		name += last
	}
	if name != "" {
		return name
	}
	if username != "" {
		return "@" + username
	}
	return fmt.Sprintf("user %d", userID)
}

// GetHistoryForUser lists a user's archived exchanges, newest first.
func (repo *Repository) GetHistoryForUser(userID int64) ([]*objects.HistoryRecord, error) {
	log.Printf("[REPOSITORY] Getting exchange history for user %d", userID)

	rows, err := repo.db.Query(
		`SELECT id, match_id, rater_user_id, partner_user_id, partner_name,
		        rating, notes, duration_seconds, completed_at
		FROM exchange_history
		WHERE rater_user_id = $1
		ORDER BY completed_at DESC`,
		userID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error getting exchange history: %v", err)
		return nil, storeErr("get history", err)
	}
	defer rows.Close()

	var records []*objects.HistoryRecord
	for rows.Next() {
		rec := &objects.HistoryRecord{}
		var notes sql.NullString
		var durationSeconds int64

		err := rows.Scan(&rec.ID, &rec.MatchID, &rec.RaterUserID, &rec.PartnerUserID,
			&rec.PartnerName, &rec.Rating, &notes, &durationSeconds, &rec.CompletedAt)
		if err != nil {
			log.Printf("[REPOSITORY] Error scanning history row: %v", err)
			continue
		}

		if notes.Valid {
			rec.Notes = notes.String
		}
		rec.Duration = time.Duration(durationSeconds) * time.Second
		records = append(records, rec)
	}

	log.Printf("[REPOSITORY] Found %d history records for user %d", len(records), userID)
	return records, nil
}

// CountHistoryForMatch returns how many history rows exist for a match.
func (repo *Repository) CountHistoryForMatch(matchID int64) (int, error) {
	var count int
	err := repo.db.QueryRow(
		`SELECT COUNT(*) FROM exchange_history WHERE match_id = $1`, matchID,
	).Scan(&count)
	if err != nil {
		return 0, storeErr("count history", err)
	}
	return count, nil
}

// ExpireActiveExchangesBefore retires abandoned exchanges older than the
// cutoff where neither party ever completed. No history rows are written
// for them; the underlying posts reopen for matching.
func (repo *Repository) ExpireActiveExchangesBefore(cutoff string) (int64, error) {
	log.Printf("[REPOSITORY] Expiring abandoned active exchanges older than %s", cutoff)

	tx, err := repo.db.Begin()
	if err != nil {
		return 0, storeErr("expire active exchanges", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`DELETE FROM active_exchanges
		WHERE created_at < NOW() - $1::interval
		  AND a_completed = FALSE AND b_completed = FALSE
		RETURNING match_id, post_id`,
		cutoff,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error expiring active exchanges: %v", err)
		return 0, storeErr("expire active exchanges", err)
	}

	type retired struct{ matchID, postID int64 }
	var victims []retired
	for rows.Next() {
		var v retired
		if err := rows.Scan(&v.matchID, &v.postID); err != nil {
			rows.Close()
			return 0, storeErr("expire active exchanges", err)
		}
		victims = append(victims, v)
	}
	rows.Close()

	for _, v := range victims {
		if _, err := tx.Exec(`DELETE FROM chat_messages WHERE match_id = $1`, v.matchID); err != nil {
			return 0, storeErr("expire active exchanges", err)
		}
		// Reopen the post so the offer can match again.
		if _, err := tx.Exec(
			`UPDATE posts SET status = 'active', updated_at = CURRENT_TIMESTAMP
			 WHERE id = $1 AND status = 'matched'`,
			v.postID,
		); err != nil {
			return 0, storeErr("expire active exchanges", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, storeErr("expire active exchanges", err)
	}

	log.Printf("[REPOSITORY] Expired %d abandoned active exchanges", len(victims))
	return int64(len(victims)), nil
}
