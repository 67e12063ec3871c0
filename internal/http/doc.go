// Package http exposes the hybrid-work services over JSON.
//
// The router mounts:
//   - GET /health, GET /metrics: liveness and Prometheus exposition, unauthenticated.
//   - POST /auth/login {"username","password"}, POST /auth/refresh {"refreshToken"}:
//     both return {"accessToken","accessTokenExpiresAt","refreshToken","user"}.
//     POST /auth/logout {"refreshToken"} revokes the session.
//   - GET /me, GET /users: the current account and the member directory.
//   - /calendar: events, availability blocks, schedule requests, active blocks and
//     next availability. Event listings are masked for viewers other than the owner.
//   - /desks: floor plan with the reservations active now, reservations and
//     cancellations. Creating desks requires the ADMIN role.
//   - /threads: conversations and their messages.
//   - /presence: presence by floor or by user, and the caller's own update.
//   - /notifications: the caller's feed and read receipts.
//   - /admin: member account management and the administrator's password.
//   - GET /ws: realtime push; the access token may be passed as ?access_token=.
//
// Every other route requires "Authorization: Bearer <accessToken>". Errors use
// {"errorCode","message","errors"}. Request and response DTOs live next to the
// handlers that use them; shared views are in dto.go.
package http
