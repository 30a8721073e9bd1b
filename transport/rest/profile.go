package rest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/adevtutorials/authors"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type ProfileController struct {
	Profiles authors.ProfileStore
	Graph    authors.SocialGraph
	Activity authors.ActivityStore
	Mailer   authors.Mailer
}

func (c *ProfileController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Get("/profiles", combineHandlers(requestAuthorizer, c.serveProfiles))
	app.Get("/profiles/:username", combineHandlers(requestAuthorizer, c.serveProfile))
	app.Patch("/profiles/:username", combineHandlers(requestAuthorizer, c.serveUpdateProfile))
	app.Get("/profiles/:username/followers", combineHandlers(requestAuthorizer, c.serveFollowers))
	app.Get("/profiles/:username/following", combineHandlers(requestAuthorizer, c.serveFollowing))
	app.Post("/profiles/:username/follow", combineHandlers(requestAuthorizer, c.serveFollow))
	app.Delete("/profiles/:username/follow", combineHandlers(requestAuthorizer, c.serveUnfollow))
}

type ProfileResponse struct {
	Username      string `json:"username"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	AboutMe       string `json:"aboutMe"`
	Gender        string `json:"gender"`
	Country       string `json:"country"`
	City          string `json:"city"`
	TwitterHandle string `json:"twitterHandle"`
	PhoneNumber   string `json:"phoneNumber"`
	AvatarUrl     string `json:"avatarUrl"`
}

func profileResponse(profile authors.Profile) ProfileResponse {
	return ProfileResponse{
		Username:      profile.User.Username,
		FirstName:     profile.User.FirstName,
		LastName:      profile.User.LastName,
		AboutMe:       profile.AboutMe,
		Gender:        profile.Gender,
		Country:       profile.Country,
		City:          profile.City,
		TwitterHandle: profile.TwitterHandle,
		PhoneNumber:   profile.PhoneNumber,
		AvatarUrl:     profile.AvatarUrl,
	}
}

func profileResponses(profiles []authors.Profile) []ProfileResponse {
	responses := make([]ProfileResponse, len(profiles))
	for i, p := range profiles {
		responses[i] = profileResponse(p)
	}
	return responses
}

func (c *ProfileController) serveProfiles(ctx *fiber.Ctx) error {
	page, err := queryPositiveInt(ctx, "page", 1)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := queryPositiveInt(ctx, "page_size", defaultPageSize)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	profiles, total, err := c.Profiles.All(ctx.Context(), (page-1)*pageSize, pageSize)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	return ctx.JSON(map[string]interface{}{
		"profiles": profileResponses(profiles),
		"count":    total,
	})
}

func (c *ProfileController) serveProfile(ctx *fiber.Ctx) error {
	profile, err := c.Profiles.ByUsername(ctx.Context(), ctx.Params("username"))
	if err != nil {
		if errors.Is(err, authors.ErrProfileNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Profile with this username does not exist.")
		}
		return fmt.Errorf("get profile by username: %w", err)
	}
	return ctx.JSON(map[string]interface{}{"profile": profileResponse(profile)})
}

func (c *ProfileController) serveUpdateProfile(ctx *fiber.Ctx) error {
	caller, ok := ctx.Locals(userLocalsKey).(authors.User)
	if !ok {
		return fiber.ErrUnauthorized
	}
	username := ctx.Params("username")

	if _, err := c.Profiles.ByUsername(ctx.Context(), username); err != nil {
		if errors.Is(err, authors.ErrProfileNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Profile with this username does not exist.")
		}
		return fmt.Errorf("get profile by username: %w", err)
	}
	if caller.Username != username {
		return fiber.NewError(fiber.StatusForbidden,
			"You cannot edit profile that doesn't belong to you.")
	}

	// pointer fields keep absent and empty values apart, so a PATCH only
	// touches what the caller sent
	body := struct {
		AboutMe       *string `json:"aboutMe"`
		Gender        *string `json:"gender"`
		Country       *string `json:"country"`
		City          *string `json:"city"`
		TwitterHandle *string `json:"twitterHandle"`
		PhoneNumber   *string `json:"phoneNumber"`
		AvatarUrl     *string `json:"avatarUrl"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	update := authors.ProfileUpdate{
		AboutMe:       body.AboutMe,
		Gender:        body.Gender,
		Country:       body.Country,
		City:          body.City,
		TwitterHandle: body.TwitterHandle,
		PhoneNumber:   body.PhoneNumber,
		AvatarUrl:     body.AvatarUrl,
	}

	profile, err := c.Profiles.Update(ctx.Context(), caller.Id, update)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	c.addActivity(ctx, caller.Id, "profile_updated", map[string]interface{}{})
	return ctx.JSON(map[string]interface{}{"profile": profileResponse(profile)})
}

func (c *ProfileController) serveFollowers(ctx *fiber.Ctx) error {
	profile, err := c.targetProfile(ctx)
	if err != nil {
		return err
	}
	followers, err := c.Graph.Followers(ctx.Context(), profile.Id)
	if err != nil {
		return fmt.Errorf("list followers: %w", err)
	}
	return ctx.JSON(map[string]interface{}{
		"followers":           profileResponses(followers),
		"number_of_followers": len(followers),
	})
}

func (c *ProfileController) serveFollowing(ctx *fiber.Ctx) error {
	profile, err := c.targetProfile(ctx)
	if err != nil {
		return err
	}
	following, err := c.Graph.Following(ctx.Context(), profile.Id)
	if err != nil {
		return fmt.Errorf("list following: %w", err)
	}
	return ctx.JSON(map[string]interface{}{
		"users_i_follow":           profileResponses(following),
		"number_of_users_i_follow": len(following),
	})
}

func (c *ProfileController) serveFollow(ctx *fiber.Ctx) error {
	caller, callerProfile, target, err := c.followParticipants(ctx)
	if err != nil {
		return err
	}

	if err := c.Graph.Follow(ctx.Context(), callerProfile, target); err != nil {
		switch {
		case errors.Is(err, authors.ErrSelfFollow):
			return fiber.NewError(fiber.StatusForbidden, "You cannot follow yourself.")
		case errors.Is(err, authors.ErrAlreadyFollowing):
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("You already follow %s", target.User.Username))
		default:
			return fmt.Errorf("follow: %w", err)
		}
	}

	c.addActivity(ctx, caller.Id, "followed", map[string]interface{}{
		"followee_username": target.User.Username,
	})
	c.notifyNewFollower(ctx, authors.NewFollowerMail{
		RecipientEmail:   target.User.Email,
		FollowedUsername: target.User.Username,
		FollowerUsername: caller.Username,
	})

	return ctx.JSON(map[string]interface{}{
		"message": fmt.Sprintf("You are now following %s", target.User.Username),
	})
}

func (c *ProfileController) serveUnfollow(ctx *fiber.Ctx) error {
	caller, callerProfile, target, err := c.followParticipants(ctx)
	if err != nil {
		return err
	}

	if err := c.Graph.Unfollow(ctx.Context(), callerProfile, target); err != nil {
		switch {
		case errors.Is(err, authors.ErrSelfFollow):
			return fiber.NewError(fiber.StatusForbidden, "You cannot follow yourself.")
		case errors.Is(err, authors.ErrNotFollowing):
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("You are not following %s", target.User.Username))
		default:
			return fmt.Errorf("unfollow: %w", err)
		}
	}

	c.addActivity(ctx, caller.Id, "unfollowed", map[string]interface{}{
		"followee_username": target.User.Username,
	})
	return ctx.JSON(map[string]interface{}{
		"message": fmt.Sprintf("You have unfollowed %s", target.User.Username),
	})
}

func (c *ProfileController) targetProfile(ctx *fiber.Ctx) (authors.Profile, error) {
	profile, err := c.Profiles.ByUsername(ctx.Context(), ctx.Params("username"))
	if err != nil {
		if errors.Is(err, authors.ErrProfileNotFound) {
			return authors.Profile{}, fiber.NewError(fiber.StatusNotFound,
				"User with this username does not exist.")
		}
		return authors.Profile{}, fmt.Errorf("get profile by username: %w", err)
	}
	return profile, nil
}

func (c *ProfileController) followParticipants(ctx *fiber.Ctx) (authors.User, authors.Profile, authors.Profile, error) {
	caller, ok := ctx.Locals(userLocalsKey).(authors.User)
	if !ok {
		return authors.User{}, authors.Profile{}, authors.Profile{}, fiber.ErrUnauthorized
	}
	target, err := c.targetProfile(ctx)
	if err != nil {
		return authors.User{}, authors.Profile{}, authors.Profile{}, err
	}
	callerProfile, err := c.Profiles.ByUserId(ctx.Context(), caller.Id)
	if err != nil {
		return authors.User{}, authors.Profile{}, authors.Profile{},
			fmt.Errorf("get caller profile: %w", err)
	}
	return caller, callerProfile, target, nil
}

// notifyNewFollower hands the mail to the mailer in the background. The
// follow already succeeded; a mailer failure is only logged.
func (c *ProfileController) notifyNewFollower(ctx *fiber.Ctx, mail authors.NewFollowerMail) {
	if c.Mailer == nil {
		return
	}
	log := requestLog(ctx)
	go func() {
		if err := c.Mailer.NotifyNewFollower(context.Background(), mail); err != nil {
			log.WithError(err).Warningln("Could not queue new follower mail.")
		}
	}()
}

func (c *ProfileController) addActivity(ctx *fiber.Ctx, userId authors.UserId, name string, data map[string]interface{}) {
	if c.Activity == nil {
		return
	}
	if err := c.Activity.AddLog(ctx.Context(), userId, authors.Activity{Name: name, Data: data}); err != nil {
		requestLog(ctx).WithError(err).Warningln("Could not add activity log.")
	}
}

func queryPositiveInt(ctx *fiber.Ctx, key string, def int) (int, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return value, nil
}
