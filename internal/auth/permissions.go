package auth

// Flat permission strings checked by set membership.
const (
	PermUserManagement      = "user_management"
	PermEquipmentManagement = "equipment_management"
)

// Roles are single string labels checked by equality.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)
