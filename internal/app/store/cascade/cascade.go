// internal/app/store/cascade/cascade.go
//
// Package cascade removes documents together with everything that refers to
// them, keeping the denormalized counters on users and pins in step. The
// functions here issue several writes; callers run them inside txn.Run.
package cascade

import (
	"context"
	"errors"

	boardstore "github.com/dalemusser/pinhub/internal/app/store/boards"
	commentstore "github.com/dalemusser/pinhub/internal/app/store/comments"
	loginstore "github.com/dalemusser/pinhub/internal/app/store/logins"
	pinstore "github.com/dalemusser/pinhub/internal/app/store/pins"
	userstore "github.com/dalemusser/pinhub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DeletePins removes pinIDs, their comments, and their entries on boards.
// Comment and pin counters of the affected users are decremented. It
// returns the number of pins removed.
func DeletePins(ctx context.Context, db *mongo.Database, pinIDs []primitive.ObjectID) (int64, error) {
	if len(pinIDs) == 0 {
		return 0, nil
	}
	pins := pinstore.New(db)
	users := userstore.New(db)

	lost, err := commentstore.New(db).DeleteByPins(ctx, pinIDs)
	if err != nil {
		return 0, err
	}
	if err := users.DecrementCounters(ctx, userstore.CounterComments, lost); err != nil {
		return 0, err
	}

	owners, err := pins.OwnerCounts(ctx, pinIDs)
	if err != nil {
		return 0, err
	}
	if err := boardstore.New(db).PullPins(ctx, pinIDs); err != nil {
		return 0, err
	}
	n, err := pins.DeleteMany(ctx, pinIDs)
	if err != nil {
		return 0, err
	}
	if err := users.DecrementCounters(ctx, userstore.CounterPins, owners); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteBoards removes boardIDs and every pin filed under them. Board
// counters are left to the caller, which knows the owners. It returns the
// number of pins removed.
func DeleteBoards(ctx context.Context, db *mongo.Database, boardIDs []primitive.ObjectID) (int64, error) {
	if len(boardIDs) == 0 {
		return 0, nil
	}
	pinIDs, err := pinstore.New(db).IDsByBoards(ctx, boardIDs...)
	if err != nil {
		return 0, err
	}
	n, err := DeletePins(ctx, db, pinIDs)
	if err != nil {
		return n, err
	}

	boards := boardstore.New(db)
	for _, id := range boardIDs {
		if err := boards.Delete(ctx, id); err != nil && !errors.Is(err, boardstore.ErrNotFound) {
			return n, err
		}
	}
	return n, nil
}

// UserResult summarizes what DeleteUser removed.
type UserResult struct {
	Boards   int   `json:"boards"`
	Pins     int64 `json:"pins"`
	Comments int   `json:"comments"`
}

// DeleteUser removes uid and everything the account owns: boards with their
// pins, pins on other users' boards, and comments left anywhere. The user is
// also taken out of saves, collaborator lists, and the follow graph, and
// the users who lose a follower get their activity recomputed.
func DeleteUser(ctx context.Context, db *mongo.Database, uid primitive.ObjectID) (UserResult, error) {
	var res UserResult
	users := userstore.New(db)
	pins := pinstore.New(db)
	boards := boardstore.New(db)

	if _, err := users.GetByID(ctx, uid); err != nil {
		return res, err
	}

	boardIDs, err := boards.IDsByOwner(ctx, uid)
	if err != nil {
		return res, err
	}
	res.Boards = len(boardIDs)
	if res.Pins, err = DeleteBoards(ctx, db, boardIDs); err != nil {
		return res, err
	}

	rest, err := pins.IDsByOwner(ctx, uid)
	if err != nil {
		return res, err
	}
	n, err := DeletePins(ctx, db, rest)
	if err != nil {
		return res, err
	}
	res.Pins += n

	byPin, err := commentstore.New(db).DeleteByAuthor(ctx, uid)
	if err != nil {
		return res, err
	}
	deltas := make(map[primitive.ObjectID]int, len(byPin))
	for pinID, c := range byPin {
		deltas[pinID] = -c
		res.Comments += c
	}
	if err := pins.AdjustCommentCounts(ctx, deltas); err != nil {
		return res, err
	}

	if err := pins.PullSaver(ctx, uid); err != nil {
		return res, err
	}
	if err := boards.PullCollaborator(ctx, uid); err != nil {
		return res, err
	}
	affected, err := users.PullFromGraph(ctx, uid)
	if err != nil {
		return res, err
	}
	for _, id := range affected {
		if err := users.Recompute(ctx, id); err != nil && !errors.Is(err, userstore.ErrNotFound) {
			return res, err
		}
	}
	if _, err := loginstore.New(db).DeleteByUser(ctx, uid); err != nil {
		return res, err
	}
	return res, users.Delete(ctx, uid)
}
