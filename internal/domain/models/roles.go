package models

// Role identifies which dashboard and which API routes a user can reach.
type Role string

const (
	RoleSuperAdmin         Role = "superadmin"
	RoleMD                 Role = "md"
	RoleProcurementOfficer Role = "procurement_officer"
	RoleStoreManager       Role = "store_manager"
	RoleHotelManager       Role = "hotel_manager"
	RoleAccounts           Role = "accounts"
)

// AllRoles lists every role known to the system.
var AllRoles = []Role{
	RoleSuperAdmin,
	RoleMD,
	RoleProcurementOfficer,
	RoleStoreManager,
	RoleHotelManager,
	RoleAccounts,
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// HotelScoped reports whether users with this role work against a single hotel.
func (r Role) HotelScoped() bool {
	return r == RoleHotelManager
}
