package LedgerDB

import (
	"github.com/rs/zerolog"

	"github.com/grizzlydb/LedgerDB/db"
	"github.com/grizzlydb/LedgerDB/ps"
)

type Instance struct {
	Store ps.Store
}

func Open(store ps.Store) *Instance {
	return &Instance{
		Store: store,
	}
}

func (instance *Instance) Engine(name string, logger zerolog.Logger) *db.Engine {
	return db.NewEngine(db.Config{
		Name:   name,
		Store:  instance.Store,
		Logger: logger,
	})
}
