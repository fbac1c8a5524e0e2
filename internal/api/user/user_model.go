package user

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/NgKhai/product-manager/internal/types"
)

// UpdateUserRequest is the JSON body for profile updates. Role and status
// are not updatable through this surface.
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(2, 50)),
		validation.Field(&r.Email, is.Email),
	)
}

func (r UpdateUserRequest) toParams() types.UpdateUserParams {
	return types.UpdateUserParams{
		Name:  r.Name,
		Email: r.Email,
	}
}

// UserListResponse is the success payload for the admin user listing.
type UserListResponse struct {
	Users      []types.User     `json:"users"`
	Pagination types.Pagination `json:"pagination"`
}
