package common

// BearerScheme is the Authorization scheme carried by session tokens and
// announced in WWW-Authenticate challenges.
const BearerScheme = "Bearer"

// TokenType is the token_type value returned alongside issued tokens.
const TokenType = "bearer"
