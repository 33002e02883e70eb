package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/aliasvault/internal/dbx"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/authlogs"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/users"
	"github.com/dmitrijs2005/aliasvault/internal/server/repositories/vaults"
)

type RepositoryManager interface {
	// RunMigrations applies the embedded goose migrations.
	RunMigrations(context.Context, *sql.DB) error

	Users(db dbx.DBTX) users.Repository
	// Vaults stores one row per revision.
	Vaults(db dbx.DBTX) vaults.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	AuthLogs(db dbx.DBTX) authlogs.Repository
}
