// Package schema extracts table mapping metadata from Go record types.
//
// Mapping is declared with `dal` struct tags:
//
//	type User struct {
//	    _        struct{} `dal:"table=TMS_USER"`
//	    ID       int64    `dal:"id,column=USER_ID,sequence=TESTUSER"`
//	    UserName string   `dal:"column=USER_NAME"`
//	    Email    string   // column "email", parameter :email
//	    Cache    []byte   `dal:"-"`
//	}
//
// The table name comes from a blank field tagged `table=`, a TableName
// method, or, when only field tags are present, the snake-cased type name.
// A field binds to the parameter named after it with its leading upper-case
// run lowered (UserName binds :userName, ID binds :id); `prop=` overrides it.
// Embedded structs are flattened, so column groups such as those in
// contrib/mixin can be shared between records.
//
// Types that cannot carry tags implement Describer and return the
// descriptor table directly:
//
//	func (Legacy) DescribeTable() schema.Definition {
//	    return schema.Definition{
//	        Table: "LEGACY",
//	        Fields: []schema.FieldDef{
//	            {Field: "Key", Column: "LEGACY_ID", Identity: true, Sequence: "SEQ_LEGACY"},
//	            {Field: "Label", Column: "LABEL"},
//	        },
//	    }
//	}
package schema
