package redisx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdemCreateKey(t *testing.T) {
	assert.Equal(t, "idem:appointment:create:abc", IdemCreateKey("abc"))
}

func TestRecordEncoding(t *testing.T) {
	raw, err := json.Marshal(Record{Fingerprint: "abc", StatusCode: 201, Body: json.RawMessage(`{"id":"a1"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fingerprint":"abc","status_code":201,"body":{"id":"a1"}}`, string(raw))

	raw, err = json.Marshal(Record{Pending: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pending":true}`, string(raw))
}

func TestRecordMatches(t *testing.T) {
	rec := Record{Fingerprint: "abc", StatusCode: 201}
	assert.True(t, rec.Matches("abc"))
	assert.False(t, rec.Matches("def"))
	assert.True(t, Record{StatusCode: 201}.Matches("def"))
}
