// Package gen generates Go source declaring a constant for every statement
// id of a registry, so that callers reference named statements by
// identifier instead of by string:
//
//	users, err := client.QueryForList[User](ctx, c, stmts.UserFindByName, params)
//
// Output is built with Jennifer and formatted with goimports.
package gen
