package fingerprint

import "testing"

func TestKey_Deterministic(t *testing.T) {
	a := Key("GET", "/v1/users/42", nil)
	b := Key("GET", "/v1/users/42", nil)
	if a != b {
		t.Errorf("same input produced different keys: %s vs %s", a, b)
	}
}

func TestKey_MethodCaseInsensitive(t *testing.T) {
	a := Key("get", "/v1/users/42", nil)
	b := Key("GET", "/v1/users/42", nil)
	if a != b {
		t.Errorf("method case changed the key: %s vs %s", a, b)
	}
}

func TestKey_BodySensitive(t *testing.T) {
	a := Key("POST", "/v1/search", []byte(`{"q":"alpha"}`))
	b := Key("POST", "/v1/search", []byte(`{"q":"beta"}`))
	if a == b {
		t.Error("different bodies produced the same key")
	}
}

func TestKey_Distinguishes(t *testing.T) {
	tests := []struct {
		name             string
		method, endpoint string
		body             []byte
	}{
		{"different endpoint", "GET", "/v1/users/43", nil},
		{"different method", "DELETE", "/v1/users/42", nil},
		{"body added", "GET", "/v1/users/42", []byte("x")},
	}

	base := Key("GET", "/v1/users/42", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.method, tt.endpoint, tt.body); got == base {
				t.Errorf("key collision with base request: %s", got)
			}
		})
	}
}

func TestShard_Stable(t *testing.T) {
	if Shard("some-key", 8) != Shard("some-key", 8) {
		t.Error("shard assignment is not stable")
	}
	if got := Shard("anything", 1); got != 0 {
		t.Errorf("single bucket should always map to 0, got %d", got)
	}
	if got := Shard("anything", 0); got != 0 {
		t.Errorf("zero buckets should map to 0, got %d", got)
	}
}

func TestShard_Bounds(t *testing.T) {
	for _, key := range []string{"a", "b", "c", "fp:0123456789abcdef"} {
		if got := Shard(key, 4); got < 0 || got >= 4 {
			t.Errorf("shard %d out of range for key %q", got, key)
		}
	}
}
