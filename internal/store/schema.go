package store

// Sheet names.
const (
	SheetFacilities  = "facilities"
	SheetUsers       = "users"
	SheetRecords     = "records"
	SheetPermissions = "user_permissions"
	SheetAuditLogs   = "audit_logs"
)

// SheetSchema lists the columns a sheet must carry and the value existing rows
// get when a column is added later.
type SheetSchema struct {
	Name     string
	Columns  []string
	Defaults map[string]string
}

// Schema returns the layout of every sheet the application uses.
func Schema() []SheetSchema {
	return []SheetSchema{
		{
			Name:     SheetFacilities,
			Columns:  []string{"facility_id", "name", "status", "contact_email", "created_at", "updated_at"},
			Defaults: map[string]string{"status": "active"},
		},
		{
			Name: SheetUsers,
			Columns: []string{"user_id", "facility_id", "login_id", "email", "google_email", "password_hash",
				"role", "status", "last_login_at", "created_at", "updated_at"},
			Defaults: map[string]string{"status": "active"},
		},
		{
			Name: SheetRecords,
			Columns: []string{"record_id", "facility_id", "file_name", "file_creator", "sharer", "file_url",
				"access_level", "created_at", "created_by", "updated_at", "deleted_flag"},
			Defaults: map[string]string{"access_level": "editable", "deleted_flag": "false"},
		},
		{
			Name:    SheetPermissions,
			Columns: []string{"permission_id", "user_id", "record_id", "last_accessed_at"},
		},
		{
			Name: SheetAuditLogs,
			Columns: []string{"log_id", "timestamp", "user_id", "facility_id", "action", "target_type",
				"target_id", "before_json", "after_json", "ip", "user_agent"},
		},
	}
}
