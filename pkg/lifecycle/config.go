package lifecycle

// Endpoints holds the paths of the remote user service, relative to the API base URL.
type Endpoints struct {
	Login    string `env:"API_LOGIN_PATH" envDefault:"/api/users/login"`
	Logout   string `env:"API_LOGOUT_PATH" envDefault:"/api/users/logout"`
	Refresh  string `env:"API_REFRESH_PATH" envDefault:"/api/users/refresh"`
	Register string `env:"API_REGISTER_PATH" envDefault:"/api/users/register"`
	Me       string `env:"API_ME_PATH" envDefault:"/api/users/me"`
}

// DefaultEndpoints returns the paths used by the user service
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:    "/api/users/login",
		Logout:   "/api/users/logout",
		Refresh:  "/api/users/refresh",
		Register: "/api/users/register",
		Me:       "/api/users/me",
	}
}

// AuthPaths returns the paths whose 401 responses must never trigger a refresh
func (e Endpoints) AuthPaths() []string {
	return []string{e.Login, e.Refresh}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Login == "" {
		e.Login = d.Login
	}
	if e.Logout == "" {
		e.Logout = d.Logout
	}
	if e.Refresh == "" {
		e.Refresh = d.Refresh
	}
	if e.Register == "" {
		e.Register = d.Register
	}
	if e.Me == "" {
		e.Me = d.Me
	}
	return e
}
