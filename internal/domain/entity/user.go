package entity

// User is the owner of a subscription. Only the fields the reminder emails need are mapped.
type User struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string  `gorm:"column:name" json:"name"`
	Email      string  `gorm:"column:email;uniqueIndex" json:"email"`
	LineUserID *string `gorm:"column:line_user_id" json:"lineUserId,omitempty"` // Optional LINE push target
}

// TableName specifies the table name for the User entity.
func (User) TableName() string {
	return "users"
}
