// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/canonical/go-dqlite/client"
	"github.com/canonical/go-dqlite/driver"
	"github.com/pkg/errors"
)

var dqliteDrivers = struct {
	mutex sync.Mutex
	names map[string]string
}{names: map[string]string{}}

// dqliteDriverName registers a dqlite driver for the cluster node at addr,
// once per address, and returns its name.
func dqliteDriverName(ctx context.Context, addr string) (string, error) {
	dqliteDrivers.mutex.Lock()
	defer dqliteDrivers.mutex.Unlock()
	if name, ok := dqliteDrivers.names[addr]; ok {
		return name, nil
	}

	store := client.NewInmemNodeStore()
	if err := store.Set(ctx, []client.NodeInfo{{Address: addr}}); err != nil {
		return "", err
	}
	drv, err := driver.New(store)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("plcsql-dqlite-%d", len(dqliteDrivers.names))
	sql.Register(name, drv)
	dqliteDrivers.names[addr] = name
	return name, nil
}

// OpenDqlite opens the database called name on the dqlite cluster reachable
// at addr. The catalog and user tables live in that database.
func OpenDqlite(ctx context.Context, addr, name string) (*sql.DB, error) {
	driverName, err := dqliteDriverName(ctx, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to dqlite at %s", addr)
	}
	db, err := sql.Open(driverName, name)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open dqlite database %s", name)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "cannot reach dqlite database %s", name)
	}
	return db, nil
}
