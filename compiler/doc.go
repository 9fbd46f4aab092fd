// Package compiler turns mapped record types into CRUD statement templates.
//
// Given
//
//	type User struct {
//	    _        struct{} `dal:"table=TMS_USER"`
//	    ID       int64    `dal:"id,column=USER_ID,sequence=TESTUSER"`
//	    UserName string   `dal:"column=USER_NAME"`
//	}
//
// Compile produces for Oracle:
//
//	INSERT INTO TMS_USER (USER_ID, USER_NAME) VALUES (TESTUSER.nextval, :userName)
//	UPDATE TMS_USER SET USER_NAME = :userName WHERE USER_ID = :id
//	DELETE FROM TMS_USER WHERE USER_ID = :id
//	SELECT USER_ID, USER_NAME FROM TMS_USER WHERE USER_ID = :id
//
// On auto-increment dialects (MySQL, SQLite) the identity is left out of the
// insert. Cache memoizes holders per type.
package compiler
