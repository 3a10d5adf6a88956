package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
)

const errBucketMissing = "The bucket with this id does not exist in the system"

func (a *API) listBuckets(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := page(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	me := currentUser(r)

	buckets, err := a.buckets.ListByOwner(r.Context(), me.ID, skip, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	count, err := a.buckets.CountByOwner(r.Context(), me.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	out := listResponse[bucketPublic]{Data: make([]bucketPublic, 0, len(buckets)), Count: count}
	for _, b := range buckets {
		out.Data = append(out.Data, newBucketPublic(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createBucket(w http.ResponseWriter, r *http.Request) {
	var req bucketCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	me := currentUser(r)
	in := models.BucketCreate{UserID: me.ID, Capacity: req.Capacity, FruitIDs: req.Fruits}
	if req.UserID != nil {
		if *req.UserID != me.ID && !me.IsSuperuser {
			writeDetail(w, http.StatusForbidden, "You can only create buckets for yourself")
			return
		}
		in.UserID = *req.UserID
	}
	if err := in.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}

	bucket, err := a.buckets.Create(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBucketPublic(bucket))
}

// ownedBucket loads the bucket named by the id parameter. Buckets of other
// users are reported as missing to non-superusers.
func (a *API) ownedBucket(w http.ResponseWriter, r *http.Request, param string) (*models.Bucket, bool) {
	id, err := pathID(r, param)
	if err != nil {
		a.writeError(w, r, err)
		return nil, false
	}
	bucket, err := a.buckets.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrBucketNotFound) {
			writeDetail(w, http.StatusNotFound, errBucketMissing)
			return nil, false
		}
		a.writeError(w, r, err)
		return nil, false
	}
	if !canAccess(currentUser(r), bucket.UserID) {
		writeDetail(w, http.StatusNotFound, errBucketMissing)
		return nil, false
	}
	return bucket, true
}

func (a *API) readBucket(w http.ResponseWriter, r *http.Request) {
	bucket, ok := a.ownedBucket(w, r, "id")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newBucketPublic(bucket))
}

func (a *API) updateBucket(w http.ResponseWriter, r *http.Request) {
	bucket, ok := a.ownedBucket(w, r, "id")
	if !ok {
		return
	}

	var req bucketUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	me := currentUser(r)
	if req.UserID != nil && *req.UserID != me.ID && !me.IsSuperuser {
		writeDetail(w, http.StatusForbidden, "You can only assign buckets to yourself")
		return
	}

	patch := models.BucketPatch{Capacity: req.Capacity, UserID: req.UserID, FruitIDs: req.Fruits}
	if err := patch.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}

	updated, err := a.buckets.Update(r.Context(), bucket.ID, patch)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBucketPublic(updated))
}

func (a *API) deleteBucket(w http.ResponseWriter, r *http.Request) {
	bucket, ok := a.ownedBucket(w, r, "id")
	if !ok {
		return
	}
	if _, err := a.buckets.Delete(r.Context(), bucket.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Bucket deleted successfully"})
}
