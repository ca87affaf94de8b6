package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"taskboard/models"
	"taskboard/utilities"
)

// AuthService concentra as chamadas ao Firebase Authentication. O cliente
// admin verifica e revoga tokens; o Identity Toolkit faz o login por senha.
type AuthService struct {
	client  *auth.Client
	toolkit *identitytoolkit.Service
}

// NewAuthService cria os clientes uma única vez, na inicialização.
func NewAuthService(ctx context.Context, app *firebase.App, apiKey string) (*AuthService, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao obter cliente de Auth: %w", err)
	}

	svc := &AuthService{client: client}
	if apiKey == "" {
		utilities.LogInfo("FIREBASE_API_KEY não definida; login por e-mail e senha desabilitado")
		return svc, nil
	}

	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("erro ao criar cliente do Identity Toolkit: %w", err)
	}
	svc.toolkit = toolkit
	return svc, nil
}

// SignUp cria o usuário no Firebase.
func (s *AuthService) SignUp(ctx context.Context, c models.Credentials) (*models.Identity, error) {
	email := strings.TrimSpace(c.Email)
	if email == "" || c.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	params := (&auth.UserToCreate{}).
		Email(email).
		EmailVerified(false).
		Password(c.Password).
		Disabled(false)
	if c.DisplayName != "" {
		params = params.DisplayName(c.DisplayName)
	}

	user, err := s.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, fmt.Errorf("%w: email already registered", models.ErrValidation)
		}
		return nil, mapAuthError(err, "erro ao criar usuário")
	}

	utilities.LogInfo("Usuário criado com sucesso: UID = %s", user.UID)
	return &models.Identity{UID: user.UID, Email: user.Email, DisplayName: user.DisplayName}, nil
}

// SignIn troca e-mail e senha por um ID token.
func (s *AuthService) SignIn(ctx context.Context, c models.Credentials) (*models.AuthTokens, error) {
	if s.toolkit == nil {
		return nil, fmt.Errorf("%w: password sign-in is not configured", models.ErrAuth)
	}
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             strings.TrimSpace(c.Email),
		Password:          c.Password,
		ReturnSecureToken: true,
	}
	resp, err := s.toolkit.Relyingparty.VerifyPassword(req).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code < 500 {
			return nil, fmt.Errorf("%w: %s", models.ErrAuth, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: erro ao autenticar: %w", models.ErrNetwork, err)
	}

	return &models.AuthTokens{
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		UID:          resp.LocalId,
		Email:        resp.Email,
	}, nil
}

// Verify valida o ID token, inclusive contra revogação.
func (s *AuthService) Verify(ctx context.Context, idToken string) (*models.Identity, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: token não fornecido", models.ErrAuth)
	}
	token, err := s.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return nil, mapAuthError(err, "erro ao verificar token")
	}

	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	return &models.Identity{UID: token.UID, Email: email, DisplayName: name, IssuedAt: token.IssuedAt}, nil
}

// SignOut revoga os refresh tokens do usuário. Sessão expirada ou sem
// permissão conta como logout concluído.
func (s *AuthService) SignOut(ctx context.Context, uid string) error {
	err := s.client.RevokeRefreshTokens(ctx, uid)
	if err == nil {
		return nil
	}
	if errorutils.IsUnauthenticated(err) || errorutils.IsPermissionDenied(err) || auth.IsUserNotFound(err) {
		utilities.LogInfo("Revogação ignorada para %s (%v); logout local concluído", uid, err)
		return nil
	}
	return mapAuthError(err, "erro ao revogar tokens")
}

// UpdateProfile altera o nome de exibição do usuário.
func (s *AuthService) UpdateProfile(ctx context.Context, uid, displayName string) error {
	_, err := s.client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).DisplayName(displayName))
	return mapAuthError(err, "erro ao atualizar usuário")
}

func mapAuthError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case auth.IsIDTokenInvalid(err), auth.IsIDTokenExpired(err), auth.IsIDTokenRevoked(err),
		auth.IsUserDisabled(err), errorutils.IsUnauthenticated(err):
		return fmt.Errorf("%w: %s: %w", models.ErrAuth, msg, err)
	case auth.IsUserNotFound(err):
		return fmt.Errorf("%w: %s: %w", models.ErrNotFound, msg, err)
	case errorutils.IsPermissionDenied(err):
		return fmt.Errorf("%w: %s: %w", models.ErrForbidden, msg, err)
	case errorutils.IsUnavailable(err):
		return fmt.Errorf("%w: %s: %w", models.ErrNetwork, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
