// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package main

import "math/rand"

// role mirrors Piazza's r_role column: 0 is a plain student, 1 a TA.
type role struct {
	uid, cid, role int
}

type post struct {
	id, cid, author int
	content         string
	private         int
}

// populate generates a synthetic Piazza-shaped dataset: nClasses classes,
// nUsers students enrolled across them, and nPosts posts authored by those
// students, privateFrac of which are marked private. Classes, users and
// roles are generated by enrollStudents, posts on the first getPosts call;
// populateTables inserts them in the original benchmark's table order
// (roles, users, posts, classes).
type populate struct {
	nPosts, nUsers, nClasses int
	privateFrac              float64
	rng                      *rand.Rand

	roles   []role
	users   []int
	posts   []post
	classes []int
}

func newPopulate(nPosts, nUsers, nClasses int, privateFrac float64, seed int64) *populate {
	return &populate{
		nPosts:      nPosts,
		nUsers:      nUsers,
		nClasses:    nClasses,
		privateFrac: privateFrac,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// enrollStudents assigns every user a role in one or more classes before
// any posts are generated, matching the original's enroll-then-post order.
func (p *populate) enrollStudents() {
	p.classes = make([]int, p.nClasses)
	for i := range p.classes {
		p.classes[i] = i
	}
	p.users = make([]int, p.nUsers)
	for i := range p.users {
		p.users[i] = i
	}

	for _, u := range p.users {
		nEnrolled := 1 + p.rng.Intn(3)
		seen := make(map[int]bool, nEnrolled)
		for len(seen) < nEnrolled && len(seen) < p.nClasses {
			c := p.rng.Intn(p.nClasses)
			if seen[c] {
				continue
			}
			seen[c] = true
			p.roles = append(p.roles, role{uid: u, cid: c, role: 0})
		}
	}
}

func (p *populate) getRoles() []role { return p.roles }
func (p *populate) getUsers() []int  { return p.users }

func (p *populate) getClasses() []int { return p.classes }

func (p *populate) getPosts() []post {
	if p.posts != nil {
		return p.posts
	}
	p.posts = make([]post, p.nPosts)
	for i := range p.posts {
		author := p.users[p.rng.Intn(len(p.users))]
		cid := p.classes[p.rng.Intn(len(p.classes))]
		private := 0
		if p.rng.Float64() < p.privateFrac {
			private = 1
		}
		p.posts[i] = post{
			id:      i,
			cid:     cid,
			author:  author,
			content: "post body",
			private: private,
		}
	}
	return p.posts
}
