package inmem

import (
	"context"

	"github.com/hashicorp/go-memdb"
	"github.com/skybi/fleetdash/internal/session"
	"golang.org/x/oauth2"
)

const tableTokens = "tokens"

type record struct {
	Key   string
	Token oauth2.Token
}

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableTokens: {
			Name: tableTokens,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Key"},
				},
			},
		},
	},
}

// Driver represents the in-memory token storage driver built using hashicorp/go-memdb
type Driver struct {
	db *memdb.MemDB
}

var _ session.Storage = (*Driver)(nil)

// New creates a new empty in-memory token storage driver
func New() (*Driver, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Driver{db}, nil
}

// Load retrieves the token stored under the given key
func (driver *Driver) Load(_ context.Context, key string) (*oauth2.Token, error) {
	txn := driver.db.Txn(false)
	obj, err := txn.First(tableTokens, "id", key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	token := obj.(*record).Token
	return &token, nil
}

// Save stores a token under the given key, replacing the previous one
func (driver *Driver) Save(_ context.Context, key string, token *oauth2.Token) error {
	if token == nil {
		return driver.Delete(context.Background(), key)
	}

	txn := driver.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableTokens, &record{Key: key, Token: *token}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Delete removes the token stored under the given key
func (driver *Driver) Delete(_ context.Context, key string) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(tableTokens, "id", key); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
