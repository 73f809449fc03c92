package app

import (
	"go.uber.org/zap"

	"github.com/yanizio/fantasia/internal/database"
)

// State is shared by every handler on every listener.  Both fields are
// safe for concurrent use.
type State struct {
	DB  *database.Pool
	Log *zap.Logger
}
