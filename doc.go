// Package session implements the client-side authentication session lifecycle
// for the ClassDesk education-center console: credential persistence, session
// bootstrap, token refresh, route guards, and the HTTP client that talks to
// the console backend.
//
// Session lifecycle:
//   - A Manager owns the in-memory session state (user, access token, the
//     authenticated and loading flags) and is the only writer. Consumers read
//     immutable Snapshot values and mutate state exclusively through Login,
//     Logout, UpdateUser, and Bootstrap.
//   - Bootstrap restores a session across process restarts: it reads the
//     refresh token from the TokenStore, exchanges it for a fresh access
//     token, and re-fetches the user profile. A rejected refresh token tears
//     the whole session down; a transient failure leaves the stored
//     credentials intact for the next start.
//   - The access token only ever lives in memory. The refresh token and the
//     last-known profile are the only state crossing a restart boundary, held
//     sealed at rest by store.FileStore.
//
// Route guards:
//   - RequireAuth and RequireRoles are router middleware built on a pure
//     decision function. While bootstrap is in flight they answer with a
//     retryable placeholder, never a premature redirect. Unknown or
//     disallowed roles land on the forbidden page, never the login page.
package session
