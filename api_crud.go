package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Typed wrappers over the console's CRUD resources. Every call goes through
// the authenticated client path, so a 401 on any of them forces the session
// teardown the same way the auth endpoints do.

// ListParams is the common pagination and filter envelope for list calls.
type ListParams struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string
}

func (p ListParams) query() string {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if p.SortOrder != "" {
		q.Set("sort_order", p.SortOrder)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Page is one page of a list response.
type Page[T any] struct {
	Data     []*T  `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Teacher is a teaching staff record.
type Teacher struct {
	ID             string     `json:"id,omitempty"`
	Code           string     `json:"code,omitempty"`
	FullName       string     `json:"full_name,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	EmploymentType string     `json:"employment_type,omitempty"`
	Status         string     `json:"status,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Validate will run validation rules
func (t Teacher) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.FullName, validation.Required, validation.Length(1, 255)),
		validation.Field(&t.Email, is.Email),
		validation.Field(&t.Phone, validation.By(ValidatePhoneNumber)),
	)
}

// Student is an enrolled learner record.
type Student struct {
	ID            string     `json:"id,omitempty"`
	Code          string     `json:"code,omitempty"`
	FullName      string     `json:"full_name,omitempty"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	GuardianPhone string     `json:"guardian_phone,omitempty"`
	GradeLevel    string     `json:"grade_level,omitempty"`
	Status        string     `json:"status,omitempty"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// Validate will run validation rules
func (s Student) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.FullName, validation.Required, validation.Length(1, 255)),
		validation.Field(&s.Email, is.Email),
		validation.Field(&s.Phone, validation.By(ValidatePhoneNumber)),
		validation.Field(&s.GuardianPhone, validation.By(ValidatePhoneNumber)),
	)
}

// Class is a scheduled class offering.
type Class struct {
	ID          string     `json:"id,omitempty"`
	Code        string     `json:"code,omitempty"`
	Name        string     `json:"name,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	MaxStudents int        `json:"max_students,omitempty"`
	Status      string     `json:"status,omitempty"`
	Price       float64    `json:"price,omitempty"`
	TeacherID   *string    `json:"teacher_id,omitempty"`
	RoomID      *string    `json:"room_id,omitempty"`
}

// Room is a physical classroom.
type Room struct {
	ID       string `json:"id,omitempty"`
	Code     string `json:"code,omitempty"`
	Name     string `json:"name,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Resource is a typed CRUD client over one backend collection.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource builds a CRUD client for the collection at path, e.g.
// "/teachers".
func NewResource[T any](client *Client, path string) *Resource[T] {
	return &Resource[T]{client: client, path: path}
}

func (r *Resource[T]) List(ctx context.Context, params ListParams) (*Page[T], error) {
	out := &Page[T]{}
	if err := r.client.do(ctx, http.MethodGet, r.path+params.query(), nil, out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	out := new(T)
	if err := r.client.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s", r.path, id), nil, out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Create(ctx context.Context, record *T) (*T, error) {
	if err := validateRecord(record); err != nil {
		return nil, err
	}
	out := new(T)
	if err := r.client.do(ctx, http.MethodPost, r.path, record, out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Update(ctx context.Context, id string, record *T) (*T, error) {
	if err := validateRecord(record); err != nil {
		return nil, err
	}
	out := new(T)
	if err := r.client.do(ctx, http.MethodPut, fmt.Sprintf("%s/%s", r.path, id), record, out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// validateRecord runs the record's own rules when it declares any. A failing
// record never reaches the network, same contract as the forms.
func validateRecord(record any) error {
	v, ok := record.(interface{ Validate() error })
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return validationErr(err)
	}
	return nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%s", r.path, id), nil, nil, true)
}

// Teachers returns the CRUD client for teaching staff.
func (c *Client) Teachers() *Resource[Teacher] { return NewResource[Teacher](c, "/teachers") }

// Students returns the CRUD client for learners.
func (c *Client) Students() *Resource[Student] { return NewResource[Student](c, "/students") }

// Classes returns the CRUD client for class offerings.
func (c *Client) Classes() *Resource[Class] { return NewResource[Class](c, "/classes") }

// Rooms returns the CRUD client for rooms.
func (c *Client) Rooms() *Resource[Room] { return NewResource[Room](c, "/rooms") }
