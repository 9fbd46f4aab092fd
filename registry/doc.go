// Package registry loads externally authored SQL statements keyed by a
// namespaced id.
//
// A resource directory holds XML, YAML or msgpack bundle files. Each
// resource declares a namespace and, optionally, a target dialect; every
// statement in it is registered under "namespace.id":
//
//	<sqlMap namespace="user" dbType="Oracle">
//	  <select id="findByName"><![CDATA[
//	    SELECT * FROM TMS_USER WHERE 1 = 1
//	    {{if has "name"}} AND USER_NAME = :name{{end}}
//	  ]]></select>
//	</sqlMap>
//
// or
//
//	namespace: user
//	dialect: Oracle
//	statements:
//	  - id: findByName
//	    sql: SELECT * FROM TMS_USER WHERE USER_NAME = :name
//
// Load fails when a statement id is declared twice, naming both resources,
// and when the directory holds no resources at all. A loaded Registry is
// never modified; Watch produces fresh registries as files change.
package registry
