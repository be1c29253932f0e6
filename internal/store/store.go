// Package store is the persistence gateway. MySQLStore is the production
// implementation; MemoryStore backs tests and STORE_DRIVER=memory.
package store

import (
	"errors"
	"sort"

	"github.com/nikhil/chatgenius/internal/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

func sortMembers(members []models.User) {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Username < members[j].Username
	})
}
