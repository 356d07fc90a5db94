package access

import (
	"context"
	"sync"

	"github.com/mind-engage/mindengage-courseware/internal/blocks"
)

// Role is a staff-side authority scoped to a course or an organization.
// GlobalStaff takes an empty scope.
type Role string

const (
	GlobalStaff      Role = "global-staff"
	CourseStaff      Role = "course-staff"
	OrgStaff         Role = "org-staff"
	CourseInstructor Role = "course-instructor"
	OrgInstructor    Role = "org-instructor"
)

// staffRoles are the authorities that bypass gating for a course. Course
// scopes check the course key, org scopes its organization.
var staffRoles = []Role{GlobalStaff, CourseStaff, OrgStaff, CourseInstructor, OrgInstructor}

// RoleOracle answers role-membership questions. Injected everywhere it
// is needed; the engine never consults ambient global state.
type RoleOracle interface {
	HasRole(ctx context.Context, userID string, role Role, scope string) (bool, error)
}

func roleScope(role Role, course blocks.CourseKey) string {
	switch role {
	case GlobalStaff:
		return ""
	case OrgStaff, OrgInstructor:
		return course.Org()
	default:
		return course.String()
	}
}

// HasStaffAccess reports whether userID holds any staff or instructor
// authority over the course, at global, course, or org scope.
func HasStaffAccess(ctx context.Context, oracle RoleOracle, userID string, course blocks.CourseKey) (bool, error) {
	for _, role := range staffRoles {
		ok, err := oracle.HasRole(ctx, userID, role, roleScope(role, course))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// MemoryRoleStore is an in-memory RoleOracle for tests and offline mode.
type MemoryRoleStore struct {
	mu     sync.RWMutex
	grants map[string]struct{} // user|role|scope
}

func NewMemoryRoleStore() *MemoryRoleStore {
	return &MemoryRoleStore{grants: map[string]struct{}{}}
}

func grantKey(userID string, role Role, scope string) string {
	return userID + "|" + string(role) + "|" + scope
}

func (m *MemoryRoleStore) Grant(userID string, role Role, scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grantKey(userID, role, scope)] = struct{}{}
}

func (m *MemoryRoleStore) Revoke(userID string, role Role, scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants, grantKey(userID, role, scope))
}

func (m *MemoryRoleStore) HasRole(_ context.Context, userID string, role Role, scope string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.grants[grantKey(userID, role, scope)]
	return ok, nil
}
