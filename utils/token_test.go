package utils

import (
	"testing"
	"time"
)

func TestJwtRoundTrip(t *testing.T) {
	token, err := JwtGenerate("admin-3", "Aye Chan", "admin", time.Hour)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	parsed, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("JwtValidate: %v", err)
	}
	if !parsed.Valid {
		t.Fatalf("generated token reported invalid")
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok {
		t.Fatalf("claims have type %T", parsed.Claims)
	}
	if claims.AdminId != "admin-3" || claims.AdminName != "Aye Chan" || claims.Role != "admin" {
		t.Fatalf("claims round-tripped as %+v", claims)
	}
}

func TestJwtValidate_RejectsGarbage(t *testing.T) {
	if _, err := JwtValidate("not.a.token"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestJwtValidate_RejectsExpired(t *testing.T) {
	token, err := JwtGenerate("admin-3", "Aye Chan", "admin", -time.Minute)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	if _, err := JwtValidate(token); err == nil {
		t.Fatalf("expected error for expired token")
	}
}
