package JsonDB

import (
	"log/slog"

	"github.com/jsondb/JsonDB/core"
	"github.com/jsondb/JsonDB/db"
	"github.com/jsondb/JsonDB/ps"
)

// DefaultIdentity is used when no author identity is supplied.
var DefaultIdentity = core.Identity{
	Name:  "JsonDB",
	Email: "store@jsondb.local",
}

type Instance struct {
	Persistence *ps.Persistence
}

func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Persistence: persistence,
	}
}

func (instance *Instance) Store(identity core.Identity) *db.Store {
	return db.NewStore(instance.Persistence, identity, nil)
}

func (instance *Instance) StoreWithLogger(identity core.Identity, logger *slog.Logger) *db.Store {
	return db.NewStore(instance.Persistence, identity, logger)
}

// OpenPath opens a document store against the backing file at path,
// creating parent directories and an empty-object file as needed.
func OpenPath(path string) (*db.Store, error) {
	persistence, err := ps.NewFilePersistence(path)
	if err != nil {
		return nil, err
	}
	return Open(&persistence).Store(DefaultIdentity), nil
}
