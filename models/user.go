package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// User is a platform account. Employees carry a role tier plus one or more
// department affiliations ("All" matches every category); loginCount and
// lastLogin feed the escalation load-balancing tiebreak.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password,omitempty" json:"-"`
	Role        Role               `bson:"role" json:"role"`
	EmployeeID  string             `bson:"employeeId,omitempty" json:"employeeId,omitempty"`
	Departments []string           `bson:"departments,omitempty" json:"departments,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	LoginCount  int64              `bson:"loginCount" json:"loginCount"`
	LastLogin   *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// InDepartment reports whether the user serves the given category, either
// directly or via the "All" sentinel.
func (u *User) InDepartment(category IssueCategory) bool {
	for _, d := range u.Departments {
		if d == string(category) || d == AllDepartments {
			return true
		}
	}
	return false
}
