package repository

import (
	"database/sql"
	"log"
	"time"

	"kolekta/objects"
)

// CreatePost inserts a new exchange post. The post must already be
// validated and carry its geohash prefix.
func (repo *Repository) CreatePost(post *objects.ExchangePost) error {
	log.Printf("[REPOSITORY] Creating post for user %d: give %d %s, need %d %s",
		post.UserID, post.GiveAmount, post.GiveKind, post.NeedAmount, post.NeedKind)

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}

	var breakdown sql.NullString
	if post.NeedBreakdown != "" {
		breakdown = sql.NullString{String: post.NeedBreakdown, Valid: true}
	}

	err := repo.db.QueryRow(
		`INSERT INTO posts (user_id, give_amount, give_kind, need_amount, need_kind, need_breakdown,
		                    lat, lon, geohash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		post.UserID, post.GiveAmount, post.GiveKind, post.NeedAmount, post.NeedKind, breakdown,
		post.Lat, post.Lon, post.Geohash, post.Status, post.CreatedAt, post.UpdatedAt,
	).Scan(&post.ID)

	if err != nil {
		log.Printf("[REPOSITORY] Error creating post: %v", err)
		return storeErr("create post", err)
	}

	log.Printf("[REPOSITORY] Post created successfully with ID: %d", post.ID)
	return nil
}

func scanPost(scanner interface {
	Scan(dest ...interface{}) error
}) (*objects.ExchangePost, error) {
	post := &objects.ExchangePost{}
	var breakdown sql.NullString

	err := scanner.Scan(&post.ID, &post.UserID, &post.GiveAmount, &post.GiveKind,
		&post.NeedAmount, &post.NeedKind, &breakdown, &post.Lat, &post.Lon,
		&post.Geohash, &post.Status, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if breakdown.Valid {
		post.NeedBreakdown = breakdown.String
	}
	return post, nil
}

const postColumns = `id, user_id, give_amount, give_kind, need_amount, need_kind, need_breakdown,
	lat, lon, geohash, status, created_at, updated_at`

// GetPostByID retrieves a post by ID regardless of status.
func (repo *Repository) GetPostByID(id int64) (*objects.ExchangePost, error) {
	log.Printf("[REPOSITORY] Getting post by ID: %d", id)

	post, err := scanPost(repo.db.QueryRow(
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[REPOSITORY] Post %d not found", id)
			return nil, objects.ErrNotFound
		}
		log.Printf("[REPOSITORY] Error getting post %d: %v", id, err)
		return nil, storeErr("get post", err)
	}

	log.Printf("[REPOSITORY] Post %d found (status: %s)", id, post.Status)
	return post, nil
}

// FindActivePosts retrieves all active posts, newest first, excluding the
// given user's own posts. Pass 0 to include everyone. This is the candidate
// set for the base feed; exact distance ranking happens in the matcher.
func (repo *Repository) FindActivePosts(excludeUserID int64) ([]*objects.ExchangePost, error) {
	log.Printf("[REPOSITORY] Getting active posts (excluding user %d)", excludeUserID)

	rows, err := repo.db.Query(
		`SELECT `+postColumns+`
		FROM posts
		WHERE status = 'active' AND user_id != $1
		ORDER BY created_at DESC`,
		excludeUserID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error getting active posts: %v", err)
		return nil, storeErr("find active posts", err)
	}
	defer rows.Close()

	var posts []*objects.ExchangePost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			log.Printf("[REPOSITORY] Error scanning post row: %v", err)
			continue
		}
		posts = append(posts, post)
	}

	log.Printf("[REPOSITORY] Found %d active posts", len(posts))
	return posts, nil
}

// FindActivePostsInRadius retrieves active posts within radiusKm of the
// given coordinates, nearest first, excluding the given user's own posts.
// Used by search mode; the base feed is unfiltered.
func (repo *Repository) FindActivePostsInRadius(lat, lon float64, radiusKm int, excludeUserID int64) ([]*objects.ExchangePost, error) {
	log.Printf("[REPOSITORY] Finding active posts within %d km of (%f, %f), excluding user %d",
		radiusKm, lat, lon, excludeUserID)

	rows, err := repo.db.Query(
		`SELECT `+postColumns+`
		FROM posts
		WHERE status = 'active'
		  AND user_id != $4
		  AND ST_DWithin(ST_MakePoint(lon, lat)::geography, ST_MakePoint($1, $2)::geography, $3 * 1000)
		ORDER BY ST_Distance(ST_MakePoint(lon, lat)::geography, ST_MakePoint($1, $2)::geography)`,
		lon, lat, radiusKm, excludeUserID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error finding posts in radius: %v", err)
		return nil, storeErr("find posts in radius", err)
	}
	defer rows.Close()

	var posts []*objects.ExchangePost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			log.Printf("[REPOSITORY] Error scanning post row: %v", err)
			continue
		}
		posts = append(posts, post)
	}

	log.Printf("[REPOSITORY] Found %d active posts within %d km", len(posts), radiusKm)
	return posts, nil
}

// FindPostsByOwner retrieves all non-closed posts belonging to a user.
func (repo *Repository) FindPostsByOwner(userID int64) ([]*objects.ExchangePost, error) {
	log.Printf("[REPOSITORY] Getting posts for owner %d", userID)

	rows, err := repo.db.Query(
		`SELECT `+postColumns+`
		FROM posts
		WHERE user_id = $1 AND status != 'closed'
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error getting owner posts: %v", err)
		return nil, storeErr("find posts by owner", err)
	}
	defer rows.Close()

	var posts []*objects.ExchangePost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			log.Printf("[REPOSITORY] Error scanning post row: %v", err)
			continue
		}
		posts = append(posts, post)
	}

	log.Printf("[REPOSITORY] Found %d posts for owner %d", len(posts), userID)
	return posts, nil
}

// UpdatePostStatusIf flips a post's status only if it currently has the
// expected status. This is the compare-and-set used for the active->matched
// flip on accept: of two simultaneous accepts only one can win.
// Returns ErrStateConflict if the post was not in the expected status.
func (repo *Repository) UpdatePostStatusIf(id int64, expected, next string) error {
	log.Printf("[REPOSITORY] CAS post %d status: %s -> %s", id, expected, next)

	result, err := repo.db.Exec(
		`UPDATE posts
		SET status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2`,
		id, expected, next,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error updating post status: %v", err)
		return storeErr("update post status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("update post status", err)
	}
	if affected == 0 {
		log.Printf("[REPOSITORY] Post %d was not in status '%s', no change", id, expected)
		return objects.ErrStateConflict
	}

	log.Printf("[REPOSITORY] Post %d status updated to '%s'", id, next)
	return nil
}

// ClosePost withdraws a post. Only the owner may close it, and only while
// it has not been matched.
func (repo *Repository) ClosePost(id, ownerID int64) error {
	log.Printf("[REPOSITORY] Closing post %d for owner %d", id, ownerID)

	result, err := repo.db.Exec(
		`UPDATE posts
		SET status = 'closed', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2 AND status = 'active'`,
		id, ownerID,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error closing post %d: %v", id, err)
		return storeErr("close post", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("close post", err)
	}
	if affected == 0 {
		return objects.ErrStateConflict
	}

	log.Printf("[REPOSITORY] Post %d closed", id)
	return nil
}

// UpdatePost applies an owner edit to the mutable offer fields of an active
// post. Status transitions go through UpdatePostStatusIf / ClosePost.
func (repo *Repository) UpdatePost(post *objects.ExchangePost) error {
	log.Printf("[REPOSITORY] Updating post %d", post.ID)

	var breakdown sql.NullString
	if post.NeedBreakdown != "" {
		breakdown = sql.NullString{String: post.NeedBreakdown, Valid: true}
	}

	result, err := repo.db.Exec(
		`UPDATE posts
		SET give_amount = $3, give_kind = $4, need_amount = $5, need_kind = $6,
		    need_breakdown = $7, lat = $8, lon = $9, geohash = $10,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2 AND status = 'active'`,
		post.ID, post.UserID, post.GiveAmount, post.GiveKind, post.NeedAmount, post.NeedKind,
		breakdown, post.Lat, post.Lon, post.Geohash,
	)
	if err != nil {
		log.Printf("[REPOSITORY] Error updating post %d: %v", post.ID, err)
		return storeErr("update post", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr("update post", err)
	}
	if affected == 0 {
		return objects.ErrStateConflict
	}

	log.Printf("[REPOSITORY] Post %d updated successfully", post.ID)
	return nil
}
