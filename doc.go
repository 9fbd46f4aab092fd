// Package dal is a lightweight SQL-mapping engine.
//
// Callers either operate on tagged Go structs whose field metadata drives
// generated CRUD statements, or invoke externally declared, namespaced SQL
// identified by a statement id. Declared SQL may contain template logic and
// is paginated transparently across database dialects.
//
// # Packages
//
//   - dal: shared types (Page, PageResult, Statement), error taxonomy and caches
//   - dal/dialect: dialect strategies and the execution substrate interface
//   - dal/dialect/sql: database/sql backed substrate with named parameters
//   - dal/schema: entity metadata extraction from struct tags
//   - dal/compiler: CRUD statement compilation and the per-type cache
//   - dal/registry: named statement registry loaded from resource files
//   - dal/render: dynamic SQL template rendering
//   - dal/marshal: record to parameter map and row to record marshalling
//   - dal/client: the execution façade
//   - dal/privacy: authorization policies checked before each call
//   - dal/compiler/gen: Go constants for registered statement ids
//   - dal/contrib/mixin, dal/contrib/dataloader: common columns and batched loads
//
// # Usage
//
//	type User struct {
//	    _        struct{} `dal:"table=TMS_USER"`
//	    UserID   int64    `dal:"id,column=USER_ID,sequence=TESTUSER"`
//	    UserName string   `dal:"column=USER_NAME"`
//	    Email    string
//	}
//
//	c, err := client.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id, err := c.Persist(ctx, &User{UserName: "lydck"})
//	users, err := client.QueryForList[User](ctx, c, "user.findByName",
//	    map[string]any{"name": "lydck"})
//	page, err := client.QueryPage[User](ctx, c, "user.all", nil, dal.NewPage(3, 10))
package dal
