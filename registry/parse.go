package registry

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/syssam/dal"
	"github.com/syssam/dal/dialect"
)

// parser decodes one resource into entries.
type parser func(source string, data []byte) ([]Entry, error)

var parsers = map[string]parser{
	".xml":     parseXML,
	".yaml":    parseYAML,
	".yml":     parseYAML,
	".msgpack": parseBundle,
}

func parseFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dal.NewResourceError(path, err)
	}
	p := parsers[strings.ToLower(filepath.Ext(path))]
	entries, err := p(path, data)
	if err != nil {
		return nil, dal.NewResourceError(path, err)
	}
	return entries, nil
}

// Parse decodes resource data of the given format (xml, yaml or msgpack).
// source names the resource in entries and errors.
func Parse(format, source string, data []byte) ([]Entry, error) {
	p, ok := parsers["."+strings.ToLower(strings.TrimPrefix(format, "."))]
	if !ok {
		return nil, dal.NewResourceError(source, fmt.Errorf("unsupported format %q", format))
	}
	entries, err := p(source, data)
	if err != nil {
		return nil, dal.NewResourceError(source, err)
	}
	return entries, nil
}

// xmlDocument is the XML resource shape:
//
//	<sqlMap namespace="user" dbType="Oracle">
//	  <select id="findByName"><![CDATA[ SELECT ... ]]></select>
//	  <update id="rename" dbType="MySql">UPDATE ...</update>
//	</sqlMap>
type xmlDocument struct {
	Namespace  string         `xml:"namespace,attr"`
	DBType     string         `xml:"dbType,attr"`
	Statements []xmlStatement `xml:",any"`
}

type xmlStatement struct {
	XMLName xml.Name
	ID      string `xml:"id,attr"`
	DBType  string `xml:"dbType,attr"`
	Body    string `xml:",chardata"`
}

func parseXML(source string, data []byte) ([]Entry, error) {
	var doc xmlDocument
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(doc.Statements))
	for _, s := range doc.Statements {
		e, err := newEntry(source, doc.Namespace, s.ID, s.Body, firstNonEmpty(s.DBType, doc.DBType))
		if err != nil {
			return nil, fmt.Errorf("<%s id=%q>: %w", s.XMLName.Local, s.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// yamlDocument is the YAML resource shape:
//
//	namespace: user
//	dialect: Oracle
//	statements:
//	  - id: findByName
//	    sql: SELECT ...
type yamlDocument struct {
	Namespace  string  `yaml:"namespace"`
	Dialect    string  `yaml:"dialect"`
	Statements []Entry `yaml:"statements"`
}

func parseYAML(source string, data []byte) ([]Entry, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(doc.Statements))
	for i, s := range doc.Statements {
		e, err := newEntry(source, doc.Namespace, s.LocalID, s.SQL, firstNonEmpty(s.Dialect, doc.Dialect))
		if err != nil {
			return nil, fmt.Errorf("statements[%d]: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func newEntry(source, namespace, localID, body, dialectName string) (Entry, error) {
	localID = strings.TrimSpace(localID)
	if localID == "" {
		return Entry{}, fmt.Errorf("missing statement id")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Entry{}, fmt.Errorf("statement %q has no SQL", localID)
	}
	dialectName = strings.TrimSpace(dialectName)
	if dialectName != "" {
		d, err := dialect.For(dialectName)
		if err != nil {
			return Entry{}, err
		}
		dialectName = d.Name()
	}
	namespace = strings.TrimSpace(namespace)
	return Entry{
		ID:        ID(namespace, localID),
		Namespace: namespace,
		LocalID:   localID,
		SQL:       body,
		Dialect:   dialectName,
		Source:    source,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// bundle is the msgpack bundle layout.
type bundle struct {
	Version int     `msgpack:"version"`
	Entries []Entry `msgpack:"entries"`
}

const bundleVersion = 1

func parseBundle(source string, data []byte) ([]Entry, error) {
	var b bundle
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if b.Version != bundleVersion {
		return nil, fmt.Errorf("unsupported bundle version %d", b.Version)
	}
	entries := make([]Entry, 0, len(b.Entries))
	for _, e := range b.Entries {
		ne, err := newEntry(e.Source, e.Namespace, e.LocalID, e.SQL, e.Dialect)
		if err != nil {
			return nil, err
		}
		if ne.Source == "" {
			ne.Source = source
		}
		entries = append(entries, ne)
	}
	return entries, nil
}
