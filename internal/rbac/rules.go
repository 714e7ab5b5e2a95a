package rbac

// Simple default policy. Expand as needed. Ownership of individual attempts
// is checked in the quiz service, not here.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
	},
	"teacher": {
		"quiz:view",
		"quiz:view-full",
		"quiz:create",
		"quiz:update",
		"quiz:delete",
		"exam:manage",
		"attempt:view-all",
		"results:view",
		"users:bulk_upsert",
		"users:list",
	},
	"admin": {
		"*", // everything
	},
}
