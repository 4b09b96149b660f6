package store

import (
	"github.com/npillmayer/blocker/rule"
	"github.com/npillmayer/blocker/storage"
)

func storageChange(key string, s *Store) storage.Change {
	kind, _ := rule.ParseKind(key)
	raw, _ := rule.Marshal(s.Rules(kind))
	return storage.Change{Key: key, Value: raw}
}
