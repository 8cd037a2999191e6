package directory

import "time"

type Employee struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId,omitempty"`
	EmployeeNumber string    `json:"employeeNumber"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	DepartmentID   string    `json:"departmentId"`
	DepartmentName string    `json:"departmentName"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (e Employee) DisplayName() string {
	return e.FirstName + " " + e.LastName
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
