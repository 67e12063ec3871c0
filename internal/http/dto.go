package http

import (
	"time"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
)

type userDTO struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	TimeZone  string    `json:"timeZone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserDTO(user persistence.User) userDTO {
	return userDTO{
		ID:        user.ID,
		OrgID:     user.OrgID,
		Name:      user.Name,
		Email:     user.Email,
		Username:  user.Username,
		Role:      string(user.Role),
		TimeZone:  user.TimeZone,
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
}

func toUserDTOs(users []persistence.User) []userDTO {
	out := make([]userDTO, len(users))
	for i, user := range users {
		out[i] = toUserDTO(user)
	}
	return out
}

// directoryEntryDTO is the reduced user view every member may list.
type directoryEntryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type eventDTO struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Location   *string   `json:"location"`
	Visibility string    `json:"visibility"`
	CreatedBy  string    `json:"createdBy"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toEventDTO(event persistence.CalendarEvent) eventDTO {
	return eventDTO{
		ID:         event.ID,
		OwnerID:    event.OwnerID,
		Title:      event.Title,
		StartsAt:   event.StartsAt.UTC(),
		EndsAt:     event.EndsAt.UTC(),
		Location:   event.Location,
		Visibility: string(event.Visibility),
		CreatedBy:  event.CreatedBy,
		Source:     event.Source,
		CreatedAt:  event.CreatedAt.UTC(),
		UpdatedAt:  event.UpdatedAt.UTC(),
	}
}

type blockDTO struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Kind       string    `json:"kind"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toBlockDTOs(blocks []persistence.AvailabilityBlock) []blockDTO {
	out := make([]blockDTO, len(blocks))
	for i, b := range blocks {
		out[i] = blockDTO{
			ID:         b.ID,
			OwnerID:    b.OwnerID,
			StartsAt:   b.StartsAt.UTC(),
			EndsAt:     b.EndsAt.UTC(),
			Kind:       string(b.Kind),
			Visibility: string(b.Visibility),
			CreatedAt:  b.CreatedAt.UTC(),
		}
	}
	return out
}

type scheduleRequestDTO struct {
	ID           string         `json:"id"`
	RequesterID  string         `json:"requesterId"`
	TargetUserID string         `json:"targetUserId"`
	EventDraft   map[string]any `json:"eventDraft"`
	Notes        *string        `json:"notes"`
	Status       string         `json:"status"`
	DecidedAt    *time.Time     `json:"decidedAt"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func toScheduleRequestDTO(req persistence.ScheduleRequest) scheduleRequestDTO {
	draft := map[string]any(req.EventDraft)
	if draft == nil {
		draft = map[string]any{}
	}
	return scheduleRequestDTO{
		ID:           req.ID,
		RequesterID:  req.RequesterID,
		TargetUserID: req.TargetUserID,
		EventDraft:   draft,
		Notes:        req.Notes,
		Status:       string(req.Status),
		DecidedAt:    utcPtr(req.DecidedAt),
		CreatedAt:    req.CreatedAt.UTC(),
	}
}

type availabilityDTO struct {
	UserID      string    `json:"userId"`
	AvailableAt time.Time `json:"availableAt"`
}

type deskRefDTO struct {
	ID      string `json:"id"`
	FloorID string `json:"floorId"`
	Label   string `json:"label"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

func toDeskRefDTO(desk persistence.Desk) deskRefDTO {
	return deskRefDTO{ID: desk.ID, FloorID: desk.FloorID, Label: desk.Label, X: desk.X, Y: desk.Y}
}

type deskDTO struct {
	deskRefDTO
	Reservations []reservationDTO `json:"reservations"`
}

type reservationDTO struct {
	ID       string    `json:"id"`
	DeskID   string    `json:"deskId"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName,omitempty"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
	Status   string    `json:"status"`
}

func toReservationDTO(r persistence.DeskReservation, userName string) reservationDTO {
	return reservationDTO{
		ID:       r.ID,
		DeskID:   r.DeskID,
		UserID:   r.UserID,
		UserName: userName,
		StartsAt: r.StartsAt.UTC(),
		EndsAt:   r.EndsAt.UTC(),
		Status:   string(r.Status),
	}
}

func toDeskDTO(desk persistence.Desk, reservations []persistence.ReservationDetail) deskDTO {
	dto := deskDTO{
		deskRefDTO:   toDeskRefDTO(desk),
		Reservations: make([]reservationDTO, len(reservations)),
	}
	for i, r := range reservations {
		dto.Reservations[i] = toReservationDTO(r.DeskReservation, r.UserName)
	}
	return dto
}

type threadDTO struct {
	ID            string              `json:"id"`
	Type          string              `json:"type"`
	Topic         *string             `json:"topic"`
	CreatedBy     string              `json:"createdBy"`
	CreatedAt     time.Time           `json:"createdAt"`
	Participants  []directoryEntryDTO `json:"participants"`
	LatestMessage *messageDTO         `json:"latestMessage"`
}

func toThreadDTO(view application.ThreadView) threadDTO {
	dto := threadDTO{
		ID:           view.ID,
		Type:         string(view.Type),
		Topic:        view.Topic,
		CreatedBy:    view.CreatedBy,
		CreatedAt:    view.CreatedAt.UTC(),
		Participants: make([]directoryEntryDTO, len(view.Participants)),
	}
	for i, user := range view.Participants {
		dto.Participants[i] = directoryEntryDTO{ID: user.ID, Name: user.Name, Email: user.Email, Role: string(user.Role)}
	}
	if view.LatestMessage != nil {
		msg := toMessageDTO(*view.LatestMessage)
		dto.LatestMessage = &msg
	}
	return dto
}

type messageDTO struct {
	ID          string         `json:"id"`
	ThreadID    string         `json:"threadId"`
	SenderID    string         `json:"senderId"`
	Body        string         `json:"body"`
	Attachments map[string]any `json:"attachments,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func toMessageDTO(msg persistence.Message) messageDTO {
	return messageDTO{
		ID:          msg.ID,
		ThreadID:    msg.ThreadID,
		SenderID:    msg.SenderID,
		Body:        msg.Body,
		Attachments: msg.Attachments,
		CreatedAt:   msg.CreatedAt.UTC(),
	}
}

type presenceDTO struct {
	UserID   string             `json:"userId"`
	Status   string             `json:"status"`
	Location string             `json:"location"`
	DeskID   *string            `json:"deskId"`
	LastSeen time.Time          `json:"lastSeen"`
	User     *directoryEntryDTO `json:"user,omitempty"`
	Desk     *deskRefDTO        `json:"desk,omitempty"`
}

func toPresenceDTO(p persistence.Presence) presenceDTO {
	return presenceDTO{
		UserID:   p.UserID,
		Status:   string(p.Status),
		Location: string(p.Location),
		DeskID:   p.DeskID,
		LastSeen: p.LastSeen.UTC(),
	}
}

func toPresenceDetailDTOs(rows []persistence.PresenceDetail) []presenceDTO {
	out := make([]presenceDTO, len(rows))
	for i, row := range rows {
		dto := toPresenceDTO(row.Presence)
		dto.User = &directoryEntryDTO{ID: row.User.ID, Name: row.User.Name, Email: row.User.Email, Role: string(row.User.Role)}
		if row.Desk != nil {
			desk := toDeskRefDTO(*row.Desk)
			dto.Desk = &desk
		}
		out[i] = dto
	}
	return out
}

type notificationDTO struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
	ReadAt    *time.Time     `json:"readAt"`
	CreatedAt time.Time      `json:"createdAt"`
}

func toNotificationDTOs(items []persistence.Notification) []notificationDTO {
	out := make([]notificationDTO, len(items))
	for i, n := range items {
		out[i] = notificationDTO{
			ID:        n.ID,
			Kind:      n.Kind,
			Payload:   n.Payload,
			ReadAt:    utcPtr(n.ReadAt),
			CreatedAt: n.CreatedAt.UTC(),
		}
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
