package domain

// User is an account managed through the /api/users endpoints.
//
// Fields:
//   - Record: identity, timestamps, archive flag.
//   - Name: display name.
//   - Email: unique across live and archived rows.
type User struct {
	Record
	Name  string `json:"name"  gorm:"type:varchar(255);not null"`
	Email string `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
