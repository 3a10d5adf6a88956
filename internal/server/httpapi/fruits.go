package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
)

const errFruitMissing = "The fruit with this id does not exist in the system"

func (a *API) listFruits(w http.ResponseWriter, r *http.Request) {
	fruits, err := a.fruits.ListByOwner(r.Context(), currentUser(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFruitList(fruits))
}

func (a *API) createFruit(w http.ResponseWriter, r *http.Request) {
	var req fruitCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	me := currentUser(r)
	in := models.FruitCreate{
		UserID:            me.ID,
		Name:              req.Name,
		Price:             req.Price,
		ExpirationSeconds: req.ExpirationSeconds,
		BucketID:          req.BucketID,
	}
	if req.UserID != nil {
		if *req.UserID != me.ID && !me.IsSuperuser {
			writeDetail(w, http.StatusForbidden, "You can only create fruits for yourself")
			return
		}
		in.UserID = *req.UserID
	}
	if err := in.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	if in.BucketID != nil && !a.visibleBucket(w, r, *in.BucketID) {
		return
	}

	fruit, err := a.fruits.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFruitPublic(fruit))
}

func (a *API) listBucketFruits(w http.ResponseWriter, r *http.Request) {
	bucket, ok := a.ownedBucket(w, r, "bucket_id")
	if !ok {
		return
	}
	fruits, err := a.fruits.ListByBucket(r.Context(), bucket.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFruitList(fruits))
}

func (a *API) readFruit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	fruit, err := a.fruits.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrFruitNotFound) {
			writeDetail(w, http.StatusNotFound, errFruitMissing)
			return
		}
		a.writeError(w, r, err)
		return
	}
	if !canAccess(currentUser(r), fruit.UserID) {
		writeDetail(w, http.StatusNotFound, errFruitMissing)
		return
	}
	writeJSON(w, http.StatusOK, newFruitPublic(fruit))
}

// ownedFruit checks the stored owner of the fruit named by the id parameter
// without resolving expiration.
func (a *API) ownedFruit(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return "", false
	}
	owner, err := a.fruits.Owner(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrFruitNotFound) {
			writeDetail(w, http.StatusNotFound, errFruitMissing)
			return "", false
		}
		a.writeError(w, r, err)
		return "", false
	}
	if !canAccess(currentUser(r), owner) {
		writeDetail(w, http.StatusNotFound, errFruitMissing)
		return "", false
	}
	return id, true
}

// visibleBucket writes 404 unless the target bucket exists and belongs to the
// caller, so that capacity or ownership errors never reveal foreign buckets.
func (a *API) visibleBucket(w http.ResponseWriter, r *http.Request, id string) bool {
	bucket, err := a.buckets.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrBucketNotFound) {
			writeDetail(w, http.StatusNotFound, errBucketMissing)
			return false
		}
		a.writeError(w, r, err)
		return false
	}
	if !canAccess(currentUser(r), bucket.UserID) {
		writeDetail(w, http.StatusNotFound, errBucketMissing)
		return false
	}
	return true
}

func (a *API) updateFruit(w http.ResponseWriter, r *http.Request) {
	id, ok := a.ownedFruit(w, r)
	if !ok {
		return
	}

	var req fruitUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	patch := models.FruitPatch{
		Name:              req.Name,
		Price:             req.Price,
		ExpirationSeconds: req.ExpirationSeconds,
		BucketSet:         req.BucketID.Set,
		BucketID:          req.BucketID.Value,
	}
	if err := patch.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	if patch.BucketID != nil && !a.visibleBucket(w, r, *patch.BucketID) {
		return
	}

	fruit, err := a.fruits.Update(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, common.ErrFruitNotFound) {
			writeDetail(w, http.StatusNotFound, errFruitMissing)
			return
		}
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFruitPublic(fruit))
}

func (a *API) deleteFruit(w http.ResponseWriter, r *http.Request) {
	id, ok := a.ownedFruit(w, r)
	if !ok {
		return
	}
	if _, err := a.fruits.Delete(r.Context(), id); err != nil {
		if errors.Is(err, common.ErrFruitNotFound) {
			writeDetail(w, http.StatusNotFound, errFruitMissing)
			return
		}
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Fruit deleted successfully"})
}
