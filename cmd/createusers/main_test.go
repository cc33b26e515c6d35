package main

import (
	"testing"

	"lamarkesa/pkg/auth"
	"lamarkesa/pkg/domain"
	"lamarkesa/pkg/store"
)

func TestSeedUsersCreatesBothRoles(t *testing.T) {
	memStore := store.NewMemoryStore()
	accounts := []account{
		{email: " Admin@Example.com ", password: "Sup3r-secret!", role: domain.RoleAdmin},
		{email: "devs@example.com", password: "An0ther-secret!", role: domain.RoleDevs},
	}
	if err := seedUsers(memStore, accounts); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	admin, ok, err := memStore.GetUserByEmail("admin@example.com")
	if err != nil || !ok {
		t.Fatalf("admin account missing: ok=%v err=%v", ok, err)
	}
	if admin.Role != domain.RoleAdmin || admin.Status != domain.StatusActive {
		t.Fatalf("unexpected admin account: %+v", admin)
	}
	if !auth.CheckPassword("Sup3r-secret!", admin.PasswordHash) {
		t.Fatal("admin password hash does not verify")
	}

	devs, ok, err := memStore.GetUserByEmail("devs@example.com")
	if err != nil || !ok {
		t.Fatalf("devs account missing: ok=%v err=%v", ok, err)
	}
	if devs.Role != domain.RoleDevs {
		t.Fatalf("unexpected devs role %q", devs.Role)
	}
}

func TestSeedUsersRejectsWeakPassword(t *testing.T) {
	memStore := store.NewMemoryStore()
	err := seedUsers(memStore, []account{
		{email: "admin@example.com", password: "short", role: domain.RoleAdmin},
	})
	if err == nil {
		t.Fatal("expected password policy error")
	}
	if _, ok, _ := memStore.GetUserByEmail("admin@example.com"); ok {
		t.Fatal("account must not be created on policy failure")
	}
}

func TestSeedUsersRerunRotatesCredentials(t *testing.T) {
	memStore := store.NewMemoryStore()
	first := []account{{email: "admin@example.com", password: "Sup3r-secret!", role: domain.RoleAdmin}}
	if err := seedUsers(memStore, first); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	created, _, _ := memStore.GetUserByEmail("admin@example.com")

	second := []account{{email: "admin@example.com", password: "R0tated-secret!", role: domain.RoleAdmin}}
	if err := seedUsers(memStore, second); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	rotated, ok, err := memStore.GetUserByEmail("admin@example.com")
	if err != nil || !ok {
		t.Fatalf("account missing after rerun: ok=%v err=%v", ok, err)
	}
	if rotated.ID != created.ID {
		t.Fatalf("rerun must keep the account id: %q vs %q", rotated.ID, created.ID)
	}
	if !auth.CheckPassword("R0tated-secret!", rotated.PasswordHash) {
		t.Fatal("rotated password hash does not verify")
	}
	if auth.CheckPassword("Sup3r-secret!", rotated.PasswordHash) {
		t.Fatal("old password must stop working after rerun")
	}
}
