package repository

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/pkg/pg"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

func setupTestDB(t *testing.T) *testDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&UserEntity{},
		&TransactionEntity{},
		&WalletEntity{},
		&WalletEntryEntity{},
		&AffiliateProfileEntity{},
		&AffiliateConversionEntity{},
		&PayoutEntity{},
		&MembershipEntity{},
		&MembershipGrantEntity{},
		&UserMembershipEntity{},
		&GroupMemberEntity{},
		&CourseEnrollmentEntity{},
		&ProductOwnershipEntity{},
	)
	require.NoError(t, err)

	// pg.DB keeps its pools unexported; tests wire the sqlite handle
	// into both sides through reflection.
	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return &testDB{
		DB:    pgDB,
		rawDB: db,
	}
}
