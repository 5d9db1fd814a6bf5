package model

import "strings"

// Table is the closed set of tables reachable through the generic CRUD
// endpoint.  Internal callers use the constants; strings are only parsed
// at the HTTP boundary through ParseTable.
type Table int

const (
	TableUsers Table = iota + 1
	TableOrders
	TableProducts
)

// Tables lists every table kind in a stable order.
func Tables() []Table { return []Table{TableUsers, TableOrders, TableProducts} }

func (t Table) String() string {
	if s, ok := schemas[t]; ok {
		return s.Name
	}
	return "unknown"
}

// ParseTable resolves a table name from a request path.
func ParseTable(name string) (Table, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Tables() {
		if schemas[t].Name == name {
			return t, true
		}
	}
	return 0, false
}

// Action is a CRUD verb accepted by the dispatcher.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction resolves an action name from a request path.
func ParseAction(name string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(name))); a {
	case ActionAdd, ActionUpdate, ActionDelete:
		return a, true
	}
	return "", false
}

// Schema is the registry entry of one table.
//
// Fields:
//  Name       – physical table name.
//  PrimaryKey – key column; server-assigned on add, required on update/delete.
//  Creatable  – fields accepted on add, mapped to whether they are required.
//  Updatable  – fields accepted on update; all optional.
type Schema struct {
	Name       string
	PrimaryKey string
	Creatable  map[string]bool
	Updatable  map[string]bool
}

var schemas = map[Table]Schema{
	TableUsers: {
		Name:       "users",
		PrimaryKey: "user_id",
		Creatable:  map[string]bool{"name": true, "email": false, "password": false, "created_at": false},
		Updatable:  map[string]bool{"name": true, "email": true, "password": true},
	},
	TableOrders: {
		Name:       "orders",
		PrimaryKey: "order_id",
		Creatable: map[string]bool{"order_public_id": false, "user_id": false, "products": true,
			"order_status": true, "created_at": false},
		Updatable: map[string]bool{"user_id": true, "products": true, "order_status": true},
	},
	TableProducts: {
		Name:       "products",
		PrimaryKey: "product_id",
		Creatable:  map[string]bool{"name": true, "price": true, "brand": false, "description": false},
		Updatable:  map[string]bool{"name": true, "price": true, "brand": true, "description": true},
	},
}

// SchemaFor returns the registry entry of t.  Every Table constant has one.
func SchemaFor(t Table) Schema { return schemas[t] }
