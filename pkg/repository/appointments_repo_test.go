package repository

import (
	"testing"

	"github.com/google/uuid"
)

func TestServiceLockKey(t *testing.T) {
	tenantA := uuid.MustParse("5f1c0d62-9df0-4bff-9a1e-20c7a2d0a001")
	tenantB := uuid.MustParse("5f1c0d62-9df0-4bff-9a1e-20c7a2d0a002")
	serviceA := uuid.MustParse("9b4a73e8-2f64-4c1a-8f5d-31b88c9e0001")
	serviceB := uuid.MustParse("9b4a73e8-2f64-4c1a-8f5d-31b88c9e0002")

	if got, want := serviceLockKey(tenantA, serviceA), serviceLockKey(tenantA, serviceA); got != want {
		t.Errorf("serviceLockKey not deterministic: %d != %d", got, want)
	}
	if serviceLockKey(tenantA, serviceA) == serviceLockKey(tenantA, serviceB) {
		t.Error("distinct services share a lock key")
	}
	if serviceLockKey(tenantA, serviceA) == serviceLockKey(tenantB, serviceA) {
		t.Error("distinct tenants share a lock key")
	}
	if serviceLockKey(tenantA, serviceB) == serviceLockKey(tenantB, serviceA) {
		t.Error("swapping tenant and service yields the same lock key")
	}
}
