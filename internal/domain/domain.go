package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient  Role = "patient"
	RoleDoctor   Role = "doctor"
	RolePharmacy Role = "pharmacy"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor, RolePharmacy:
		return true
	}
	return false
}

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

func (p PresenceStatus) IsValid() bool {
	return p == PresenceOnline || p == PresenceOffline
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	// Subject issued by the external identity provider.
	AuthSubject string `gorm:"column:auth_subject;type:varchar(128);uniqueIndex;not null" json:"-"`
	Email       string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	Name        string `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Role        Role   `gorm:"column:role;type:varchar(30);not null;index" json:"role"`
	Phone       string `gorm:"column:phone;type:varchar(20)" json:"phone,omitempty"`
	Address     string `gorm:"column:address;type:text" json:"address,omitempty"`

	// DeviceToken is the push token the notification pipeline targets.
	DeviceToken string `gorm:"column:device_token;type:varchar(512)" json:"-"`

	// Patient profile
	Gender      string     `gorm:"column:gender;type:varchar(20)" json:"gender,omitempty"`
	BloodGroup  string     `gorm:"column:blood_group;type:varchar(3)" json:"blood_group,omitempty"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth;type:date" json:"date_of_birth,omitempty"`

	// Doctor profile
	Specialization   string         `gorm:"column:specialization;type:varchar(120)" json:"specialization,omitempty"`
	Presence         PresenceStatus `gorm:"column:presence;type:varchar(10);default:'offline'" json:"presence,omitempty"`
	LinkedPharmacies []uuid.UUID    `gorm:"column:linked_pharmacies;type:jsonb;serializer:json" json:"linked_pharmacies,omitempty"`
}

func (User) TableName() string {
	return "auth.users"
}

// Actor is the resolved caller threaded through every service call.
type Actor struct {
	UserID uuid.UUID
	Role   Role
	Name   string
	IP     string
}

func (u *User) Actor(ip string) Actor {
	return Actor{UserID: u.ID, Role: u.Role, Name: u.Name, IP: ip}
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`

	Changes string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

// Claims is what a validated bearer token asserts about its holder.
type Claims struct {
	Subject string
	Email   string
	Role    Role
}
