package db

import "time"

type RoleModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
}

func (RoleModel) TableName() string {
	return "roles"
}

type UserModel struct {
	ID           string      `gorm:"type:uuid;primaryKey"`
	Username     string      `gorm:"uniqueIndex;not null"`
	Email        string      `gorm:"uniqueIndex;not null"`
	PasswordHash string      `gorm:"not null"`
	Active       bool        `gorm:"not null;default:true"`
	LabCode      string      `gorm:"column:lab_code"`
	Roles        []RoleModel `gorm:"many2many:user_roles"`
	CreatedAt    time.Time   `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

type LaboratoryModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Code      string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
}

func (LaboratoryModel) TableName() string {
	return "laboratories"
}

type OrderModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	PatientID     string `gorm:"index;not null"`
	RequestedTest string `gorm:"not null"`
	Status        string `gorm:"index;not null"`
	LabID         *string
	Laboratory    *LaboratoryModel `gorm:"foreignKey:LabID"`
	AssignedAt    *time.Time
	CreatedAt     time.Time `gorm:"not null"`
}

func (OrderModel) TableName() string {
	return "lab_orders"
}
