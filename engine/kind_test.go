package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := map[string]Kind{
		"SELECT 1;":                          KindSelect,
		"select * from t":                    KindSelect,
		"  WITH x AS (SELECT 1) SELECT * FROM x;": KindSelect,
		"FROM t SELECT *;":                   KindSelect,
		"VALUES (1), (2);":                   KindSelect,
		"INSERT INTO t VALUES (1);":          KindInsert,
		"insert into t select * from s":      KindInsert,
		"UPDATE t SET x = 1;":                KindUpdate,
		"DELETE FROM t;":                     KindDelete,
		"EXPLAIN SELECT 1;":                  KindExplain,
		"CREATE TABLE t (x INT);":            KindOther,
		"ATTACH 'test.db';":                  KindOther,
		"USE test;":                          KindOther,
		"":                                   KindOther,
		"   ":                                KindOther,
		"-- comment\nSELECT 1;":              KindSelect,
		"/* comment */ DELETE FROM t;":       KindDelete,
		"-- only a comment":                  KindOther,
	}

	for query, expected := range tests {
		assert.Equal(t, expected, Classify(query), query)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SELECT", KindSelect.String())
	assert.Equal(t, "INSERT", KindInsert.String())
	assert.Equal(t, "UPDATE", KindUpdate.String())
	assert.Equal(t, "DELETE", KindDelete.String())
	assert.Equal(t, "EXPLAIN", KindExplain.String())
	assert.Equal(t, "OTHER", KindOther.String())
}
