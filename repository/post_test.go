package repository

import (
	"testing"

	"kolekta/objects"

	"github.com/stretchr/testify/assert"
)

// createTestPost persists an active post for the given owner
func createTestPost(t *testing.T, repo *Repository, ownerID int64, lat, lon float64) *objects.ExchangePost {
	post := objects.NewExchangePost(ownerID, 1500, objects.CashKindBill, 1500, objects.CashKindCoin, lat, lon, "wdw4f")
	err := repo.CreatePost(post)
	assert.NoError(t, err)
	assert.NotZero(t, post.ID)
	return post
}

func TestCreateAndGetPost(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	repo := NewRepository(db)
	cleanTables(t, db)

	saveTestUser(t, repo, 100, 14.5995, 120.9842)

	post := objects.NewExchangePost(100, 1000, objects.CashKindBill, 1000, objects.CashKindCoin, 14.5995, 120.9842, "wdw4f")
	post.NeedBreakdown = "2x500"
	err := repo.CreatePost(post)
	assert.NoError(t, err)

	found, err := repo.GetPostByID(post.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), found.UserID)
	assert.Equal(t, 1000, found.GiveAmount)
	assert.Equal(t, objects.CashKindBill, found.GiveKind)
	assert.Equal(t, "2x500", found.NeedBreakdown)
	assert.Equal(t, objects.PostStatusActive, found.Status)

	_, err = repo.GetPostByID(999999)
	assert.ErrorIs(t, err, objects.ErrNotFound)
}

func TestFindActivePostsExcludesOwner(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	repo := NewRepository(db)
	cleanTables(t, db)

	saveTestUser(t, repo, 100, 14.5995, 120.9842)
	saveTestUser(t, repo, 200, 14.6000, 120.9850)

	createTestPost(t, repo, 100, 14.5995, 120.9842)
	createTestPost(t, repo, 200, 14.6000, 120.9850)

	// Closed posts never appear
	closedPost := createTestPost(t, repo, 200, 14.6000, 120.9850)
	err := repo.ClosePost(closedPost.ID, 200)
	assert.NoError(t, err)

	posts, err := repo.FindActivePosts(100)
	assert.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, int64(200), posts[0].UserID)

	// Zero means no exclusion
	posts, err = repo.FindActivePosts(0)
	assert.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestFindActivePostsInRadius(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	repo := NewRepository(db)
	cleanTables(t, db)

	saveTestUser(t, repo, 100, 14.5995, 120.9842)
	saveTestUser(t, repo, 200, 10.3157, 123.8854)

	near := createTestPost(t, repo, 100, 14.6000, 120.9850)
	createTestPost(t, repo, 200, 10.3157, 123.8854) // Cebu, far away

	posts, err := repo.FindActivePostsInRadius(14.5995, 120.9842, 10, 0)
	assert.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, near.ID, posts[0].ID)
}

func TestUpdatePostStatusIfCAS(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	repo := NewRepository(db)
	cleanTables(t, db)

	saveTestUser(t, repo, 100, 14.5995, 120.9842)
	post := createTestPost(t, repo, 100, 14.5995, 120.9842)

	// First flip wins
	err := repo.UpdatePostStatusIf(post.ID, objects.PostStatusActive, objects.PostStatusMatched)
	assert.NoError(t, err)

	// Second flip from the same expected state loses
	err = repo.UpdatePostStatusIf(post.ID, objects.PostStatusActive, objects.PostStatusMatched)
	assert.ErrorIs(t, err, objects.ErrStateConflict)

	found, err := repo.GetPostByID(post.ID)
	assert.NoError(t, err)
	assert.Equal(t, objects.PostStatusMatched, found.Status)
}

func TestClosePostOwnership(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	repo := NewRepository(db)
	cleanTables(t, db)

	saveTestUser(t, repo, 100, 14.5995, 120.9842)
	post := createTestPost(t, repo, 100, 14.5995, 120.9842)

	// Somebody else cannot close it
	err := repo.ClosePost(post.ID, 200)
	assert.ErrorIs(t, err, objects.ErrStateConflict)

	err = repo.ClosePost(post.ID, 100)
	assert.NoError(t, err)

	// Closing twice conflicts: the post is no longer active
	err = repo.ClosePost(post.ID, 100)
	assert.ErrorIs(t, err, objects.ErrStateConflict)
}

func TestFindPostsByOwner(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	repo := NewRepository(db)
	cleanTables(t, db)

	saveTestUser(t, repo, 100, 14.5995, 120.9842)

	active := createTestPost(t, repo, 100, 14.5995, 120.9842)
	matched := createTestPost(t, repo, 100, 14.5995, 120.9842)
	err := repo.UpdatePostStatusIf(matched.ID, objects.PostStatusActive, objects.PostStatusMatched)
	assert.NoError(t, err)
	closed := createTestPost(t, repo, 100, 14.5995, 120.9842)
	err = repo.ClosePost(closed.ID, 100)
	assert.NoError(t, err)

	posts, err := repo.FindPostsByOwner(100)
	assert.NoError(t, err)
	assert.Len(t, posts, 2)

	ids := []int64{posts[0].ID, posts[1].ID}
	assert.Contains(t, ids, active.ID)
	assert.Contains(t, ids, matched.ID)
}
