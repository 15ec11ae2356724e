package models

// MenuItem is a capability descriptor shown in role-scoped navigation.
type MenuItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

// navigationByRole is a static configuration table resolved once per session;
// order within each slice is the display order.
var navigationByRole = map[UserRole][]MenuItem{
	RoleTeacher: {
		{Key: "my_appraisal", Label: "My Appraisal", Path: "/appraisals/me"},
		{Key: "history", Label: "Submission History", Path: "/appraisals/me/history"},
	},
	RoleHOD: {
		{Key: "department_queue", Label: "Department Review Queue", Path: "/appraisals?status=SUBMITTED"},
		{Key: "my_appraisal", Label: "My Appraisal", Path: "/appraisals/me"},
	},
	RoleIQAC: {
		{Key: "iqac_queue", Label: "IQAC Review Queue", Path: "/appraisals?status=HOD_REVIEWED"},
		{Key: "reports", Label: "Reports", Path: "/reports"},
	},
	RolePrincipal: {
		{Key: "approval_queue", Label: "Approval Queue", Path: "/appraisals?status=IQAC_REVIEWED"},
		{Key: "reports", Label: "Reports", Path: "/reports"},
	},
	RoleAdmin: {
		{Key: "all_appraisals", Label: "All Appraisals", Path: "/appraisals"},
		{Key: "provisioning", Label: "Provisioning", Path: "/appraisals/new"},
		{Key: "reports", Label: "Reports", Path: "/reports"},
	},
}

// NavigationFor returns the fixed menu descriptors for a role.
func NavigationFor(role UserRole) []MenuItem {
	items := navigationByRole[role]
	return append([]MenuItem(nil), items...)
}
