package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
)

const errEmailTaken = "The user with this email already exists in the system"

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var req userSignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.createAccount(w, r, models.UserCreate{Email: req.Email, FullName: req.FullName, Password: req.Password})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.createAccount(w, r, models.UserCreate{
		Email:       req.Email,
		FullName:    req.FullName,
		Password:    req.Password,
		IsSuperuser: req.IsSuperuser,
	})
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request, in models.UserCreate) {
	if err := in.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.users.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			writeDetail(w, http.StatusBadRequest, errEmailTaken)
			return
		}
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserPublic(user))
}

func (a *API) readMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserPublic(currentUser(r)))
}

func (a *API) updateMe(w http.ResponseWriter, r *http.Request) {
	var req userUpdateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.patchUser(w, r, currentUser(r).ID, models.UserPatch{Email: req.Email, FullName: req.FullName})
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req userUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.patchUser(w, r, id, models.UserPatch{
		Email:       req.Email,
		FullName:    req.FullName,
		Password:    req.Password,
		IsSuperuser: req.IsSuperuser,
	})
}

func (a *API) patchUser(w http.ResponseWriter, r *http.Request, id string, patch models.UserPatch) {
	if err := patch.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.users.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			writeDetail(w, http.StatusBadRequest, errEmailTaken)
		case errors.Is(err, common.ErrorNotFound):
			writeDetail(w, http.StatusNotFound, "The user with this id does not exist in the system")
		default:
			a.writeError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, newUserPublic(user))
}

func (a *API) updateMyPassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := models.ValidatePassword(req.NewPassword); err != nil {
		a.writeError(w, r, err)
		return
	}

	err := a.users.UpdatePassword(r.Context(), currentUser(r).ID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, message{Message: "Password updated successfully"})
	case errors.Is(err, common.ErrorUnauthorized):
		writeDetail(w, http.StatusBadRequest, "Incorrect password")
	case errors.Is(err, common.ErrorValidation):
		writeDetail(w, http.StatusBadRequest, "New password cannot be the same as the current one")
	default:
		a.writeError(w, r, err)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	users, count, err := a.users.List(r.Context(), skip, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := listResponse[userPublic]{Data: make([]userPublic, 0, len(users)), Count: count}
	for _, u := range users {
		out.Data = append(out.Data, newUserPublic(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// readUser serves the caller's own record to anyone, other records to
// superusers only.
func (a *API) readUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	me := currentUser(r)
	if id == me.ID {
		writeJSON(w, http.StatusOK, newUserPublic(me))
		return
	}
	if !me.IsSuperuser {
		writeDetail(w, http.StatusForbidden, "The user doesn't have enough privileges")
		return
	}
	user, err := a.users.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserPublic(user))
}
