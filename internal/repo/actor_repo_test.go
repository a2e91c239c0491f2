package repo

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"church-admin/internal/domain"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestInsertIgnoreUsesOnConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	r := NewActorRepo(db)

	insert := regexp.QuoteMeta(`INSERT INTO "users"`) + `.*ON CONFLICT DO NOTHING RETURNING "id"`
	mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	a := &domain.Actor{AuthID: "auth-1", Username: "ana", Email: "ana@church.org", FullName: "Ana", Role: domain.RoleMember, IsActive: true}
	created, err := r.InsertIgnore(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint(7), a.ID)

	dup := &domain.Actor{AuthID: "auth-1", Username: "ana", Email: "ana@church.org", FullName: "Ana", Role: domain.RoleMember, IsActive: true}
	created, err = r.InsertIgnore(context.Background(), dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByAuthID(t *testing.T) {
	db := setupStoreDB(t)
	r := NewActorRepo(db)
	ctx := context.Background()

	got, err := r.FindByAuthID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	a := seedActor(t, db, "ana", domain.RoleMember)
	got, err = r.FindByAuthID(ctx, a.AuthID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)

	got, err = r.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Username)

	// sqlite 同样支持 ON CONFLICT DO NOTHING
	created, err := r.InsertIgnore(ctx, &domain.Actor{AuthID: a.AuthID, Username: "ana2", Email: "x@church.org", FullName: "x", Role: domain.RoleMember, IsActive: true})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestFindByAuthIDMissIsNotAnError(t *testing.T) {
	db, mock := setupMockDB(t)
	r := NewActorRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE auth_id = $1`)+`.*LIMIT`).
		WithArgs("auth-new", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "auth_id"}))

	got, err := r.FindByAuthID(context.Background(), "auth-new")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
