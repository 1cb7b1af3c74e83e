package rbac

// Default policy. Students take tests and read their own results, teachers
// additionally author content and run groups, admins can do everything.
var RolePermissions = map[string][]string{
	"student": {
		"question:view",
		"test:view",
		"session:start",
		"session:answer",
		"session:complete",
		"session:view-own",
		"group:view",
		"group:join",
		"stats:view-own",
		"user:change_password",
	},
	"teacher": {
		"question:view",
		"question:create",
		"question:import",
		"category:create",
		"test:view",
		"test:create",
		"test:grant",
		"session:start",
		"session:answer",
		"session:complete",
		"session:view-own",
		"group:*",
		"stats:view-own",
		"upload:create",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
