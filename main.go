// Package main is the Nakama plugin entry point, generalized from the
// teacher's backend.go: one InitModule that registers a match type and
// makes sure a default instance of it exists, except here the match type
// is the room and the default world comes from a planet layout file
// instead of a Tiled map.
package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/onebutton-to-space/rocket-room/internal/room"
)

// MatchTypeRoom is the name the room is registered under with Nakama's
// match dispatcher, and also the label MatchList filters on below.
const MatchTypeRoom = "rocket_room"

// DefaultWorldFile is the planet layout a freshly booted server seeds its
// default room from, mirroring the teacher's "elderford/world.json".
const DefaultWorldFile = "worlds/default.json"

// InitModule registers the room match type and ensures a default room is
// running, the same two-step bring-up backend.go's InitModule did for its
// single "game" match.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := initializer.RegisterMatch(MatchTypeRoom, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &room.Match{}, nil
	}); err != nil {
		logger.Error("unable to register %s match: %v", MatchTypeRoom, err)
		return err
	}

	if err := EnsureDefaultRoom(ctx, nk, logger); err != nil {
		logger.Error("failed to ensure default room exists: %v", err)
		return err
	}

	logger.Info("module loaded with %s match, default room created", MatchTypeRoom)
	return nil
}

// CreateDefaultRoom starts a non-admin room seeded from DefaultWorldFile.
func CreateDefaultRoom(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) (string, error) {
	logger.Info("creating default room")

	params := map[string]interface{}{
		"planets": DefaultWorldFile,
		"admin":   false,
	}

	matchID, err := nk.MatchCreate(ctx, MatchTypeRoom, params)
	if err != nil {
		return "", fmt.Errorf("create default room: %w", err)
	}

	logger.Info("default room created: %s", matchID)
	return matchID, nil
}

// EnsureDefaultRoom creates a default room if no rooms of this type are
// currently running, so players always have somewhere to join.
func EnsureDefaultRoom(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) error {
	matches, err := nk.MatchList(ctx, 10, true, MatchTypeRoom, nil, nil, "")
	if err != nil {
		logger.Error("failed to list rooms: %v", err)
		return err
	}

	if len(matches) == 0 {
		_, err := CreateDefaultRoom(ctx, nk, logger)
		return err
	}

	logger.Info("found %d existing rooms", len(matches))
	return nil
}
