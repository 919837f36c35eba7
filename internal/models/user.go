package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

// VerificationStatus represents the admin review state of an account
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// User represents a marketplace account (customer, vendor or admin)
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	Email              string             `bson:"email" json:"email"`
	PasswordHash       string             `bson:"password_hash" json:"-"`
	Role               Role               `bson:"role" json:"role"`
	VerificationStatus VerificationStatus `bson:"verification_status" json:"verification_status"`
	Phone              string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address            string             `bson:"address,omitempty" json:"address,omitempty"`
	Documents          Documents          `bson:"documents,omitempty" json:"documents,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// Documents holds paths to identity papers collected at registration.
// Upload handling itself lives outside this service; only references are stored.
type Documents struct {
	AadhaarCard  string `bson:"aadhaar_card,omitempty" json:"aadhaar_card,omitempty"`
	PanCard      string `bson:"pan_card,omitempty" json:"pan_card,omitempty"`
	UniversityID string `bson:"university_id,omitempty" json:"university_id,omitempty"`
	ShopPaper    string `bson:"shop_paper,omitempty" json:"shop_paper,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleVendor, RoleCustomer:
		return true
	default:
		return false
	}
}

// IsVerified reports whether the account passed admin review. Admins bypass
// the review queue.
func (u *User) IsVerified() bool {
	return u.Role == RoleAdmin || u.VerificationStatus == VerificationApproved
}

// Summary is the hydrated shape embedded when other entities reference a user.
type UserSummary struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
	Phone string             `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Summary strips a user down to the fields exposed on joined responses.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}
