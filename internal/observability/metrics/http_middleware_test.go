package metrics

import "testing"

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/users", "/api/users"},
		{"/api/users/8a2f1c3e-4b5d-46a7-9e81-0f2d3c4b5a69/settings", "/api/users/{id}/settings"},
		{"/api/users/8A2F1C3E-4B5D-46A7-9E81-0F2D3C4B5A69/role", "/api/users/{id}/role"},
		{"/api/workflows/12345", "/api/workflows/{id}"},
		{"/healthz", "/healthz"},
		// Near-UUIDs and words stay literal.
		{"/api/users/not-a-uuid/settings", "/api/users/not-a-uuid/settings"},
		{"/api/users/8a2f1c3e-4b5d-46a7-9e81-0f2d3c4b5a6/settings", "/api/users/8a2f1c3e-4b5d-46a7-9e81-0f2d3c4b5a6/settings"},
	}

	for _, tc := range tests {
		if got := routeLabel(tc.path); got != tc.want {
			t.Errorf("routeLabel(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
