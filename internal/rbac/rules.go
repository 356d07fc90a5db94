package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"blocks:view",
		"scores:submit",
	},
	"teacher": {
		"blocks:view",
		"blocks:view-all",
		"scores:submit",
		"gating:view",
		"gating:edit",
	},
	"admin": {
		"*", // everything
	},
}
