package authz

import (
	"context"
	"testing"

	sessiondomain "tenant-gateway/internal/session/domain"
)

func TestGuardAllow(t *testing.T) {
	ctx := context.Background()
	guard, err := NewGuard(ctx)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	cases := []struct {
		name   string
		caller sessiondomain.Caller
		tenant string
		want   bool
	}{
		{"tenant admin in own tenant", sessiondomain.Caller{Role: "admin", TenantID: "tenant_abc"}, "tenant_abc", true},
		{"tenant admin in other tenant", sessiondomain.Caller{Role: "admin", TenantID: "tenant_abc"}, "tenant_xyz", false},
		{"plain user", sessiondomain.Caller{Role: "user", TenantID: "tenant_abc"}, "tenant_abc", false},
		{"system admin anywhere", sessiondomain.Caller{Role: "system_admin", TenantID: ""}, "tenant_abc", true},
		{"system_admin role with tenant is not trusted", sessiondomain.Caller{Role: "system_admin", TenantID: "tenant_abc"}, "tenant_abc", false},
		{"unknown role", sessiondomain.Caller{Role: "owner", TenantID: "tenant_abc"}, "tenant_abc", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := guard.Allow(ctx, &tc.caller, tc.tenant)
			if err != nil {
				t.Fatalf("Allow: %v", err)
			}
			if got != tc.want {
				t.Errorf("Allow = %t, want %t", got, tc.want)
			}
		})
	}
}
