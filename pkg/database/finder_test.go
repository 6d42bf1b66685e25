package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Payphone-Digital/devcamper/pkg/advquery"
)

type camp struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	Name        string                      `json:"name"`
	AverageCost float64                     `json:"average_cost"`
	Housing     bool                        `json:"housing"`
	Careers     datatypes.JSONSlice[string] `json:"careers"`
	CreatedAt   time.Time                   `json:"created_at"`
	Courses     []lesson                    `gorm:"foreignKey:BootcampID" json:"courses,omitempty"`
}

func (camp) TableName() string { return "bootcamps" }

type lesson struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Title      string `json:"title"`
	Weeks      int    `json:"weeks"`
	BootcampID uint   `json:"bootcamp_id"`
	Bootcamp   *camp  `json:"bootcamp,omitempty"`
}

func (lesson) TableName() string { return "courses" }

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func newCampFinder(t *testing.T) (*Finder[camp], sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	f, err := NewFinder[camp](db, nil)
	require.NoError(t, err)
	return f, mock
}

func TestFinderCountCompilesComparisons(t *testing.T) {
	f, mock := newCampFinder(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "bootcamps" WHERE "average_cost" >= $1 AND "average_cost" < $2 AND "housing" = $3`)).
		WithArgs(float64(5000), float64(10000), true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	filter := advquery.Filter{
		"average_cost": {{Op: advquery.StoreGTE, Value: "5000"}, {Op: advquery.StoreLT, Value: "10000"}},
		"housing":      {advquery.Scalar("true")},
	}
	total, err := f.Count(context.Background(), filter)

	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinderCountJSONArrayMembership(t *testing.T) {
	f, mock := newCampFinder(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "bootcamps" WHERE jsonb_exists_any("careers", ARRAY[$1,$2]::text[])`)).
		WithArgs("Web Development", "UI/UX").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	filter := advquery.Filter{
		"careers": {{Op: advquery.StoreIn, Set: []string{"Web Development", "UI/UX"}}},
	}
	total, err := f.Count(context.Background(), filter)

	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinderFindSelectSortPopulate(t *testing.T) {
	f, mock := newCampFinder(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","name" FROM "bootcamps" ORDER BY "average_cost" DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Devworks").
			AddRow(2, "ModernTech"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","title","bootcamp_id" FROM "courses" WHERE "courses"."bootcamp_id" IN`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "bootcamp_id"}).
			AddRow(10, "Front End", 1).
			AddRow(11, "Full Stack", 1))

	spec := advquery.QuerySpec{
		Fields:   []string{"name", "courses"},
		Sort:     []advquery.SortField{{Field: "average_cost", Desc: true}},
		Skip:     10,
		Limit:    5,
		Populate: &advquery.Populate{Path: "courses", Select: []string{"title"}},
	}
	got, err := f.Find(context.Background(), spec)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Devworks", got[0].Name)
	require.Len(t, got[0].Courses, 2)
	assert.Equal(t, "Front End", got[0].Courses[0].Title)
	assert.Empty(t, got[1].Courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinderSkipsPopulateOutsideSelection(t *testing.T) {
	f, mock := newCampFinder(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","name" FROM "bootcamps"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Devworks"))

	got, err := f.Find(context.Background(), advquery.QuerySpec{
		Fields:   []string{"name"},
		Populate: &advquery.Populate{Path: "courses"},
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinderScope(t *testing.T) {
	db, mock := newMockDB(t)
	f, err := NewFinder[lesson](db, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("bootcamp_id = ?", 3)
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "courses" WHERE bootcamp_id = $1 AND "weeks" > $2`)).
		WithArgs(3, int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	total, err := f.Count(context.Background(), advquery.Filter{"weeks": {{Op: advquery.StoreGT, Value: "6"}}})

	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinderRejectsInvalidQueries(t *testing.T) {
	tests := []struct {
		name string
		spec advquery.QuerySpec
	}{
		{"unknown filter field", advquery.QuerySpec{Filter: advquery.Filter{"owner": {advquery.Scalar("x")}}}},
		{"uncoercible operand", advquery.QuerySpec{Filter: advquery.Filter{"average_cost": {{Op: advquery.StoreGT, Value: "cheap"}}}}},
		{"range on list field", advquery.QuerySpec{Filter: advquery.Filter{"careers": {{Op: advquery.StoreGT, Value: "a"}}}}},
		{"unknown select field", advquery.QuerySpec{Fields: []string{"nickname"}}},
		{"unknown sort field", advquery.QuerySpec{Sort: []advquery.SortField{{Field: "popularity"}}}},
		{"unknown relation", advquery.QuerySpec{Populate: &advquery.Populate{Path: "reviews"}}},
		{"unknown relation field", advquery.QuerySpec{Populate: &advquery.Populate{Path: "courses", Select: []string{"price"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, mock := newCampFinder(t)

			_, err := f.Find(context.Background(), tt.spec)

			assert.ErrorIs(t, err, advquery.ErrInvalidQuery)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCoerce(t *testing.T) {
	db, _ := newMockDB(t)
	f, err := NewFinder[camp](db, nil)
	require.NoError(t, err)

	created, err := coerce(f.fields["created_at"], "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), created)

	id, err := coerce(f.fields["id"], "42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	_, err = coerce(f.fields["id"], "-1")
	assert.Error(t, err)

	name, err := coerce(f.fields["name"], "Devworks")
	require.NoError(t, err)
	assert.Equal(t, "Devworks", name)
}
