// Package client executes entity and named statement operations.
//
// Entity operations compile a record type once into insert, update, delete
// and select statements. Named operations resolve a statement id in the
// registry, render its template against the call parameters, optionally
// rewrite it for the dialect (single row, count, page window) and execute
// it on the driver:
//
//	c, err := client.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	id, err := c.Persist(ctx, &User{Name: "lydck"})
//	users, err := client.QueryForList[User](ctx, c, "user.findByName", map[string]any{"name": "lydck"})
//	page, err := client.QueryPage[User](ctx, c, "user.all", nil, dal.NewPage(3, 10))
//
// A client built WithPolicy evaluates its privacy policy before any driver
// call; denied calls fail with an error wrapping privacy.Deny.
//
// Driver failures surface as *dal.SubstrateError carrying the statement id
// and the SQL that was submitted. They are never retried.
package client
