package service

import "errors"

// ErrEmailTaken - попытка регистрации с уже занятым email
var ErrEmailTaken = errors.New("email already registered")

// ErrAdminCodeInvalid - неверный секретный код регистрации администратора
var ErrAdminCodeInvalid = errors.New("invalid admin signup code")
