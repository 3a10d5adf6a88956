// Package repomanager vends repositories bound to a DBTX and applies the
// embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fruitful/internal/dbx"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/buckets"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/fruits"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Buckets(db dbx.DBTX) buckets.Repository
	Fruits(db dbx.DBTX) fruits.Repository
}
