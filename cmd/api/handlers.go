package main

import (
	"net/http"

	"github.com/go-chi/render"
)

func (app *Application) healthcheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, struct {
		Status  string `json:"status"`
		Debug   bool   `json:"debug"`
		Version string `json:"version"`
		Storage string `json:"storage"`
	}{
		Status:  "available",
		Debug:   app.cfg.Debug,
		Version: version,
		Storage: app.cfg.Storage.Driver,
	})
}

type accountRequest struct {
	Name string `json:"name"`
}

func (app *Application) register(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.Http.BadRequest(w, r, err.Error())
		return
	}
	user, token, err := app.Services.Accounts.Register(r.Context(), req.Name)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Created(w, r, envelop{"user": user, "token": token}, "Account created")
}

func (app *Application) login(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.Http.BadRequest(w, r, err.Error())
		return
	}
	user, token, err := app.Services.Accounts.Login(r.Context(), req.Name)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"user": user, "token": token}, "")
}

func (app *Application) me(w http.ResponseWriter, r *http.Request) {
	user := contextGetUser(r)
	app.Http.Ok(w, r, envelop{"user": user, "is_admin": app.cfg.Auth.IsAdmin(user.Name)}, "")
}

type resolveTitleRequest struct {
	Input string `json:"input"`
}

func (app *Application) resolveTitle(w http.ResponseWriter, r *http.Request) {
	var req resolveTitleRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.Http.BadRequest(w, r, err.Error())
		return
	}
	title, err := app.Services.AI.ResolveTitle(r.Context(), req.Input)
	if err != nil {
		app.providerError(w, r, err)
		return
	}
	app.Http.Ok(w, r, envelop{"title": title}, "")
}
