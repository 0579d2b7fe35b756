package repository

import (
	"database/sql"
	"errors"
	"log"

	"kolekta/objects"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	log.Println("[REPOSITORY] Repository initialized")
	return &Repository{db: db}
}

// storeErr wraps backend failures in the transient error class. Sentinel
// errors from our own taxonomy pass through untouched.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, objects.ErrNotFound) || errors.Is(err, objects.ErrStateConflict) {
		return err
	}
	var verr *objects.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return &objects.TransientStoreError{Op: op, Err: err}
}

func (repo *Repository) FindUser(userId int64) *objects.User {
	log.Printf("[REPOSITORY] Finding user with ID: %d", userId)
	user := &objects.User{}

	var lon, lat sql.NullFloat64
	var searchRadiusKm sql.NullInt64
	err := repo.db.QueryRow(
		`SELECT user_id, menu_id, username, first_name, last_name, language_code,
		        lon, lat, search_radius_km, average_rating, total_ratings, completed_exchanges
		FROM users
		WHERE user_id = $1
		LIMIT 1`,
		userId,
	).Scan(&user.UserId, &user.MenuId, &user.Username, &user.FirstName, &user.LastName,
		&user.LanguageCode, &lon, &lat, &searchRadiusKm,
		&user.AverageRating, &user.TotalRatings, &user.CompletedExchanges)

	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[REPOSITORY] User %d not found", userId)
		} else {
			log.Printf("[REPOSITORY] Error finding user %d: %v", userId, err)
		}
		return nil
	}

	// Handle nullable location fields
	if lon.Valid {
		user.Lon = lon.Float64
	}
	if lat.Valid {
		user.Lat = lat.Float64
	}
	// Handle nullable search radius
	if searchRadiusKm.Valid {
		radius := int(searchRadiusKm.Int64)
		user.SearchRadiusKm = &radius
	}

	log.Printf("[REPOSITORY] User %d found with language: %s", userId, user.LanguageCode)
	return user
}

func (repo *Repository) SaveUser(user *objects.User) error {
	log.Printf("[REPOSITORY] Saving user %d (username: %s, language: %s, location: %f,%f)",
		user.UserId, user.Username, user.LanguageCode, user.Lon, user.Lat)

	// Use sql.NullFloat64 for location values
	var lon, lat sql.NullFloat64
	if user.Lon != 0 || user.Lat != 0 {
		lon = sql.NullFloat64{Float64: user.Lon, Valid: true}
		lat = sql.NullFloat64{Float64: user.Lat, Valid: true}
	}

	// Handle nullable search radius
	var searchRadius interface{}
	if user.SearchRadiusKm != nil {
		searchRadius = *user.SearchRadiusKm
	}

	// Rating aggregates are intentionally NOT written here: they are only
	// mutated by the completion transaction (see SubmitCompletion).
	_, err := repo.db.Exec(
		`INSERT INTO users (user_id, menu_id, username, first_name, last_name, language_code, lon, lat, search_radius_km)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE
			SET menu_id = $2,
			    username = $3,
			    first_name = $4,
			    last_name = $5,
			    language_code = $6,
			    lon = $7,
			    lat = $8,
			    search_radius_km = $9`,
		user.UserId, user.MenuId, user.Username, user.FirstName, user.LastName,
		user.LanguageCode, lon, lat, searchRadius,
	)

	if err != nil {
		log.Printf("[REPOSITORY] Error saving user %d: %v", user.UserId, err)
		return storeErr("save user", err)
	}

	// Then update geog field if we have coordinates
	if lon.Valid && lat.Valid {
		_, err = repo.db.Exec(
			`UPDATE users SET geog = ST_MakePoint($1, $2)::geography WHERE user_id = $3`,
			lon.Float64, lat.Float64, user.UserId,
		)
		if err != nil {
			log.Printf("[REPOSITORY] Error updating geog for user %d: %v", user.UserId, err)
			return storeErr("save user geog", err)
		}
	} else {
		// Clear geog if no coordinates
		_, err = repo.db.Exec(
			`UPDATE users SET geog = NULL WHERE user_id = $1`,
			user.UserId,
		)
		if err != nil {
			log.Printf("[REPOSITORY] Error clearing geog for user %d: %v", user.UserId, err)
			return storeErr("save user geog", err)
		}
	}

	log.Printf("[REPOSITORY] User %d saved successfully", user.UserId)
	return nil
}

// UpdateUserLocation updates the user's location and PostGIS geography column
func (repo *Repository) UpdateUserLocation(userId int64, lon, lat float64) error {
	log.Printf("[REPOSITORY] Updating location for user %d: lon=%f, lat=%f", userId, lon, lat)

	_, err := repo.db.Exec(
		`UPDATE users
		SET lon = $2,
		    lat = $3,
		    geog = ST_MakePoint($2, $3)::geography
		WHERE user_id = $1`,
		userId, lon, lat,
	)

	if err != nil {
		log.Printf("[REPOSITORY] Error updating location for user %d: %v", userId, err)
		return storeErr("update user location", err)
	}

	log.Printf("[REPOSITORY] Location updated successfully for user %d", userId)
	return nil
}

// UpdateUserSearchRadius updates the user's search radius preference
func (repo *Repository) UpdateUserSearchRadius(userId int64, radiusKm int) error {
	log.Printf("[REPOSITORY] Updating search radius for user %d: %d km", userId, radiusKm)

	_, err := repo.db.Exec(
		`UPDATE users
		SET search_radius_km = $2
		WHERE user_id = $1`,
		userId, radiusKm,
	)

	if err != nil {
		log.Printf("[REPOSITORY] Error updating search radius for user %d: %v", userId, err)
		return storeErr("update search radius", err)
	}

	log.Printf("[REPOSITORY] Search radius updated successfully for user %d", userId)
	return nil
}

// FindUsersInRadius finds all users within specified radius of given coordinates
func (repo *Repository) FindUsersInRadius(lat, lon float64, radiusKm int) ([]*objects.User, error) {
	log.Printf("[REPOSITORY] Finding users within %d km of coordinates (%f, %f)",
		radiusKm, lat, lon)

	query := `
		SELECT user_id, menu_id, username, first_name, last_name, language_code,
		       lon, lat, search_radius_km, average_rating, total_ratings, completed_exchanges
		FROM users
		WHERE geog IS NOT NULL
		AND ST_DWithin(geog, ST_MakePoint($1, $2)::geography, $3 * 1000)
		ORDER BY ST_Distance(geog, ST_MakePoint($1, $2)::geography)
	`

	rows, err := repo.db.Query(query, lon, lat, radiusKm)
	if err != nil {
		log.Printf("[REPOSITORY] Error finding users in radius: %v", err)
		return nil, storeErr("find users in radius", err)
	}
	defer rows.Close()

	var users []*objects.User
	for rows.Next() {
		user := &objects.User{}
		var lon, lat sql.NullFloat64
		var searchRadiusKm sql.NullInt64

		err := rows.Scan(&user.UserId, &user.MenuId, &user.Username, &user.FirstName,
			&user.LastName, &user.LanguageCode, &lon, &lat, &searchRadiusKm,
			&user.AverageRating, &user.TotalRatings, &user.CompletedExchanges)
		if err != nil {
			log.Printf("[REPOSITORY] Error scanning user in radius: %v", err)
			continue
		}

		// Handle nullable location fields
		if lon.Valid {
			user.Lon = lon.Float64
		}
		if lat.Valid {
			user.Lat = lat.Float64
		}
		// Handle nullable search radius
		if searchRadiusKm.Valid {
			radius := int(searchRadiusKm.Int64)
			user.SearchRadiusKm = &radius
		}

		users = append(users, user)
	}

	log.Printf("[REPOSITORY] Found %d users within %d km", len(users), radiusKm)
	return users, nil
}
