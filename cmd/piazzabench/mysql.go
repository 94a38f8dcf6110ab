// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package main

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// backend is a thin wrapper over the pool of connections populate_tables
// inserts through, mirroring the original benchmark's single-pool Backend.
type backend struct {
	db *sql.DB
}

func newBackend(dsn string) (*backend, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening mysql pool")
	}
	db.SetMaxOpenConns(1)
	return &backend{db: db}, nil
}

// createConnection drops and recreates the named database, matching the
// original's "DROP DATABASE if it already exists, then CREATE" sequence.
func (b *backend) createConnection(dbName string) error {
	if _, err := b.db.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName)); err != nil {
		return errors.Wrapf(err, "dropping database %s", dbName)
	}
	if _, err := b.db.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		return errors.Wrapf(err, "creating database %s", dbName)
	}
	if _, err := b.db.Exec(fmt.Sprintf("USE %s", dbName)); err != nil {
		return errors.Wrapf(err, "selecting database %s", dbName)
	}
	return nil
}

func (b *backend) createTables() error {
	stmts := []string{
		`CREATE TABLE Post (
			p_id int(11) NOT NULL,
			p_cid int(11) NOT NULL,
			p_author int(11) NOT NULL,
			p_content varchar(258) NOT NULL,
			p_private tinyint(1) NOT NULL DEFAULT '0',
			PRIMARY KEY (p_id),
			UNIQUE KEY p_id (p_id),
			KEY p_cid (p_cid),
			KEY p_author (p_author)
		) ENGINE=MEMORY`,
		`CREATE TABLE User (
			u_id int(11) NOT NULL,
			PRIMARY KEY (u_id),
			UNIQUE KEY u_id (u_id)
		) ENGINE=MEMORY`,
		`CREATE TABLE Class (
			c_id int(11) NOT NULL,
			PRIMARY KEY (c_id),
			UNIQUE KEY c_id (c_id)
		) ENGINE=MEMORY`,
		`CREATE TABLE Role (
			r_uid int(11) NOT NULL,
			r_cid int(11) NOT NULL,
			r_role tinyint(1) NOT NULL DEFAULT '0',
			KEY r_uid (r_uid),
			KEY r_cid (r_cid)
		) ENGINE=MEMORY`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "creating tables")
		}
	}
	return nil
}

// populateTables inserts p's generated rows in the same table order the
// original benchmark uses: roles, users, posts, classes.
func (b *backend) populateTables(p *populate) error {
	p.enrollStudents()

	if err := b.insertRoles(p.getRoles()); err != nil {
		return err
	}
	if err := b.insertUsers(p.getUsers()); err != nil {
		return err
	}
	if err := b.insertPosts(p.getPosts()); err != nil {
		return err
	}
	if err := b.insertClasses(p.getClasses()); err != nil {
		return err
	}
	return nil
}

func (b *backend) insertRoles(roles []role) error {
	stmt, err := b.db.Prepare("INSERT INTO Role (r_uid, r_cid, r_role) VALUES (?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "preparing Role insert")
	}
	defer stmt.Close()
	for _, r := range roles {
		if _, err := stmt.Exec(r.uid, r.cid, r.role); err != nil {
			return errors.Wrap(err, "inserting into Role")
		}
	}
	return nil
}

func (b *backend) insertUsers(users []int) error {
	stmt, err := b.db.Prepare("INSERT INTO User (u_id) VALUES (?)")
	if err != nil {
		return errors.Wrap(err, "preparing User insert")
	}
	defer stmt.Close()
	for _, u := range users {
		if _, err := stmt.Exec(u); err != nil {
			return errors.Wrap(err, "inserting into User")
		}
	}
	return nil
}

func (b *backend) insertPosts(posts []post) error {
	stmt, err := b.db.Prepare("INSERT INTO Post (p_id, p_cid, p_author, p_content, p_private) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "preparing Post insert")
	}
	defer stmt.Close()
	for _, p := range posts {
		if _, err := stmt.Exec(p.id, p.cid, p.author, p.content, p.private); err != nil {
			return errors.Wrap(err, "inserting into Post")
		}
	}
	return nil
}

func (b *backend) insertClasses(classes []int) error {
	stmt, err := b.db.Prepare("INSERT INTO Class (c_id) VALUES (?)")
	if err != nil {
		return errors.Wrap(err, "preparing Class insert")
	}
	defer stmt.Close()
	for _, c := range classes {
		if _, err := stmt.Exec(c); err != nil {
			return errors.Wrap(err, "inserting into Class")
		}
	}
	return nil
}

func (b *backend) close() error {
	return b.db.Close()
}

// dbNameFromDSN extracts the trailing path component of a DSN the same
// way the original locates its database name: everything after the last
// slash.
func dbNameFromDSN(dsn string) string {
	i := strings.LastIndex(dsn, "/")
	if i < 0 {
		return dsn
	}
	return dsn[i+1:]
}
